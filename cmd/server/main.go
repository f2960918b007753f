package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/ore-world/internal/config"
	"github.com/annel0/ore-world/internal/ecs"
	"github.com/annel0/ore-world/internal/eventbus"
	"github.com/annel0/ore-world/internal/logging"
	"github.com/annel0/ore-world/internal/replication"
	"github.com/annel0/ore-world/internal/storage"
	"github.com/annel0/ore-world/internal/world"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации")
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.InitLogger(); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseLogger()

	logging.LogInfo("⛏️ Запуск Ore World Server...")

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	width := cfg.World.GetWidth()
	height := cfg.World.GetHeight()
	seaLevel := cfg.World.GetSeaLevel()
	seed := cfg.World.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	logging.LogInfo("🌍 Мир: %dx%d, уровень моря %d, сид %d", width, height, seaLevel, seed)

	// === ХРАНИЛИЩЕ ===
	worldStorage, err := storage.NewWorldStorage(cfg.Storage.GetDataPath())
	if err != nil {
		log.Fatalf("❌ Ошибка открытия хранилища мира: %v", err)
	}
	defer worldStorage.Close()

	// === АВТОРИТЕТНЫЙ МИР ===
	defs := world.DefaultBlockDefs()
	grid, err := world.NewGrid(width, height, seaLevel, defs)
	if err != nil {
		log.Fatalf("❌ Ошибка создания сетки мира: %v", err)
	}

	// Загружаем сохранённый мир или генерируем новый
	hasWorld, err := worldStorage.HasWorld()
	if err != nil {
		log.Fatalf("❌ Ошибка проверки хранилища: %v", err)
	}
	if hasWorld {
		meta, err := worldStorage.LoadWorld(grid)
		if err != nil {
			if errors.Is(err, storage.ErrCorruptSnapshot) {
				log.Fatalf("❌ Снапшот мира повреждён: %v", err)
			}
			log.Fatalf("❌ Ошибка загрузки мира: %v", err)
		}
		seed = meta.Seed
		logging.LogInfo("💾 Мир загружен из хранилища (сид %d, ревизия %d)", meta.Seed, meta.Revision)
	} else {
		generator := world.NewWorldGenerator(seed)
		generator.Generate(grid)
		logging.LogInfo("🌱 Сгенерирован новый мир")
	}

	// === ШИНА СОБЫТИЙ ===
	var bus eventbus.EventBus
	if cfg.EventBus.URL != "" {
		jsBus, err := eventbus.NewJetStreamBus(cfg.EventBus.URL, "", 24*time.Hour)
		if err != nil {
			log.Fatalf("❌ Ошибка подключения к NATS: %v", err)
		}
		bus = jsBus
		logging.LogInfo("📡 Репликация через NATS JetStream: %s", cfg.EventBus.URL)
	} else {
		bus = eventbus.NewMemoryBus(4096)
		logging.LogInfo("📡 Репликация через in-memory шину (одиночный режим)")
	}
	defer bus.Close()

	// === РЕПЛИКАЦИЯ ===
	metrics := replication.NewReplicationMetrics(prometheus.DefaultRegisterer)
	deltaManager := replication.NewManager(grid, bus, "authoritative", metrics)

	authoritative := world.NewWorldManager(world.ModeAuthoritative, grid, ecs.NewRegistry())
	authoritative.SetDeltaSink(deltaManager)
	authoritative.SetAutosavePeriod(time.Duration(cfg.World.GetAutosaveMins()) * time.Minute)
	authoritative.SetTickPeriod(time.Second / time.Duration(cfg.World.GetTicksPerSec()))
	authoritative.SetSaveFunc(func(g *world.Grid, tick uint64) error {
		return worldStorage.SaveWorld(g, storage.WorldMeta{
			Seed:     seed,
			Revision: deltaManager.Revision(),
			SavedAt:  time.Now().UTC(),
		})
	})

	// === ЛОКАЛЬНЫЙ НАБЛЮДАТЕЛЬ (одиночный режим) ===
	// Отдельная сетка и отдельный реестр: наблюдатель синхронизируется
	// только через протокол репликации, без общих структур с авторитетным
	// миром.
	observerGrid, err := world.NewGrid(width, height, seaLevel, defs)
	if err != nil {
		log.Fatalf("❌ Ошибка создания сетки наблюдателя: %v", err)
	}

	observerMetrics := replication.NewReplicationMetrics(nil)
	observerRegistry := ecs.NewRegistry()
	observerRegistry.SetTextureResolver(world.NewTextureAtlas(defs).Resolve)

	observer := world.NewWorldManager(world.ModeObserver, observerGrid, observerRegistry)
	observer.SetApplier(replication.NewApplier(observerGrid, observerMetrics))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := bus.Subscribe(ctx, eventbus.Filter{Sources: []string{"authoritative"}},
		func(ctx context.Context, ev *eventbus.Envelope) {
			observer.EnqueueMessage(ev.Payload)
		})
	if err != nil {
		log.Fatalf("❌ Ошибка подписки наблюдателя: %v", err)
	}
	defer sub.Unsubscribe()

	// === ЗАПУСК ===
	go authoritative.Run(ctx)
	go observer.Run(ctx)

	// Первичная синхронизация наблюдателя полным снапшотом
	if err := deltaManager.PublishSnapshot(ctx); err != nil {
		logging.LogError("Ошибка публикации снапшота: %v", err)
	}

	logging.LogInfo("✅ Сервер запущен")

	// Ожидаем сигнал завершения
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logging.LogInfo("🛑 Завершение работы...")
	cancel()
	authoritative.Stop()
	observer.Stop()

	// Финальное сохранение мира
	if err := worldStorage.SaveWorld(grid, storage.WorldMeta{
		Seed:     seed,
		Revision: deltaManager.Revision(),
		SavedAt:  time.Now().UTC(),
	}); err != nil {
		logging.LogError("Ошибка финального сохранения: %v", err)
	} else {
		logging.LogInfo("💾 Мир сохранён")
	}
}
