package vec

import "fmt"

// Vec2 представляет целочисленные 2D координаты блока в мире
type Vec2 struct {
	X, Y int
}

// String возвращает строковое представление координат
func (v Vec2) String() string {
	return fmt.Sprintf("(%d,%d)", v.X, v.Y)
}

// Add возвращает сумму двух векторов
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// South возвращает координаты блока непосредственно снизу (ось Y растёт вниз)
func (v Vec2) South() Vec2 {
	return Vec2{X: v.X, Y: v.Y + 1}
}

// North возвращает координаты блока непосредственно сверху
func (v Vec2) North() Vec2 {
	return Vec2{X: v.X, Y: v.Y - 1}
}

// Clamp ограничивает значение диапазоном [min, max]
func Clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Rect описывает прямоугольную область блоков (границы включительно)
type Rect struct {
	X, Y, X2, Y2 int
}

// Width возвращает ширину области в блоках
func (r Rect) Width() int {
	return r.X2 - r.X + 1
}

// Height возвращает высоту области в блоках
func (r Rect) Height() int {
	return r.Y2 - r.Y + 1
}

// Area возвращает количество блоков в области
func (r Rect) Area() int {
	return r.Width() * r.Height()
}

// Valid проверяет, что границы области не вывернуты
func (r Rect) Valid() bool {
	return r.X <= r.X2 && r.Y <= r.Y2
}

// Contains проверяет, лежит ли точка внутри области
func (r Rect) Contains(v Vec2) bool {
	return v.X >= r.X && v.X <= r.X2 && v.Y >= r.Y && v.Y <= r.Y2
}
