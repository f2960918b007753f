package replication

import (
	"context"
	"testing"
	"time"

	"github.com/annel0/ore-world/internal/ecs"
	"github.com/annel0/ore-world/internal/eventbus"
	"github.com/annel0/ore-world/internal/vec"
	"github.com/annel0/ore-world/internal/world"
	"github.com/stretchr/testify/require"
)

// TestSelfHostedReplication поднимает в одном процессе авторитетный мир
// и наблюдателя, связанные только шиной событий, и проверяет, что
// изменения доходят до наблюдателя через полный путь репликации:
// тик-цикл, слив дельт, шину и очередь входящих сообщений.
func TestSelfHostedReplication(t *testing.T) {
	authoritativeGrid := newTestGrid(t, 32, 32)
	world.NewWorldGenerator(11).Generate(authoritativeGrid)

	observerGrid := newTestGrid(t, 32, 32)

	bus := eventbus.NewMemoryBus(64)
	defer bus.Close()
	manager := NewManager(authoritativeGrid, bus, "authoritative", NewReplicationMetrics(nil))
	applier := NewApplier(observerGrid, NewReplicationMetrics(nil))

	authoritative := world.NewWorldManager(world.ModeAuthoritative, authoritativeGrid, ecs.NewRegistry())
	authoritative.SetDeltaSink(manager)
	authoritative.SetTickPeriod(2 * time.Millisecond)

	observer := world.NewWorldManager(world.ModeObserver, observerGrid, ecs.NewRegistry())
	observer.SetApplier(applier)
	observer.SetTickPeriod(2 * time.Millisecond)

	ctx := context.Background()
	_, err := bus.Subscribe(ctx, eventbus.Filter{Sources: []string{"authoritative"}},
		func(ctx context.Context, ev *eventbus.Envelope) {
			observer.EnqueueMessage(ev.Payload)
		})
	require.NoError(t, err)

	go authoritative.Run(ctx)
	go observer.Run(ctx)
	defer observer.Stop()
	defer authoritative.Stop()

	// Первичная синхронизация полным снапшотом
	require.NoError(t, manager.PublishSnapshot(ctx))

	// observedTerrain читает блок наблюдателя из его же тик-потока
	observedTerrain := func(pos vec.Vec2) world.TerrainID {
		result := make(chan world.TerrainID, 1)
		observer.Execute(func() {
			b, _ := observerGrid.Get(pos.X, pos.Y)
			result <- b.Terrain
		})
		select {
		case terrain := <-result:
			return terrain
		case <-time.After(time.Second):
			t.Fatal("Тик-поток наблюдателя не ответил")
			return world.TerrainNull
		}
	}

	// Снапшот должен донести сгенерированный ландшафт
	bottom := vec.Vec2{X: 5, Y: 31}
	require.Eventually(t, func() bool {
		return observedTerrain(bottom) == world.TerrainBedrock
	}, 5*time.Second, 10*time.Millisecond, "снапшот не дошёл до наблюдателя")

	// Дальнейшие изменения доходят дельтами
	target := vec.Vec2{X: 7, Y: 3}
	authoritative.Execute(func() {
		authoritative.SetBlock(target, world.TerrainCopper)
	})

	require.Eventually(t, func() bool {
		return observedTerrain(target) == world.TerrainCopper
	}, 5*time.Second, 10*time.Millisecond, "дельта не дошла до наблюдателя")
}
