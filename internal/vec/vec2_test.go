package vec

import "testing"

func TestVec2Neighbours(t *testing.T) {
	v := Vec2{X: 3, Y: 7}

	south := v.South()
	if south.X != 3 || south.Y != 8 {
		t.Errorf("Ожидался южный сосед (3,8), получен %s", south)
	}

	north := v.North()
	if north.X != 3 || north.Y != 6 {
		t.Errorf("Ожидался северный сосед (3,6), получен %s", north)
	}

	sum := v.Add(Vec2{X: -3, Y: 1})
	if sum.X != 0 || sum.Y != 8 {
		t.Errorf("Ожидалась сумма (0,8), получена %s", sum)
	}
}

func TestClamp(t *testing.T) {
	cases := []struct {
		value, min, max, want int
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
		{0, 0, 0, 0},
	}

	for _, c := range cases {
		got := Clamp(c.value, c.min, c.max)
		if got != c.want {
			t.Errorf("Clamp(%d, %d, %d): ожидалось %d, получено %d",
				c.value, c.min, c.max, c.want, got)
		}
	}
}

func TestRect(t *testing.T) {
	r := Rect{X: 2, Y: 3, X2: 4, Y2: 5}

	if r.Width() != 3 || r.Height() != 3 {
		t.Errorf("Ожидался размер 3x3, получено %dx%d", r.Width(), r.Height())
	}
	if r.Area() != 9 {
		t.Errorf("Ожидалась площадь 9, получена %d", r.Area())
	}
	if !r.Valid() {
		t.Error("Область с нормальными границами должна быть корректной")
	}

	inverted := Rect{X: 4, Y: 3, X2: 2, Y2: 5}
	if inverted.Valid() {
		t.Error("Область с вывернутыми границами не должна быть корректной")
	}

	if !r.Contains(Vec2{X: 2, Y: 3}) || !r.Contains(Vec2{X: 4, Y: 5}) {
		t.Error("Границы области должны входить в неё включительно")
	}
	if r.Contains(Vec2{X: 5, Y: 3}) {
		t.Error("Точка за границей не должна входить в область")
	}

	single := Rect{X: 1, Y: 1, X2: 1, Y2: 1}
	if single.Area() != 1 {
		t.Errorf("Ожидалась площадь 1 для области из одного блока, получена %d", single.Area())
	}
}
