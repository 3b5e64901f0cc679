package cmd

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/desim/desim/engine"
	"github.com/desim/desim/process"
)

var (
	restaurantOrderQueueCap int
	restaurantCooks         int
	restaurantTrays         int
	restaurantArrivalRate   float64
	restaurantCookMean      float64
	restaurantServeMean     float64
	restaurantOrderCount    int
)

var restaurantCmd = &cobra.Command{
	Use:   "restaurant",
	Short: "Run a two-stage restaurant demo (order queue -> kitchen -> tray pool -> pickup)",
	Run:   runRestaurant,
}

func init() {
	restaurantCmd.Flags().IntVar(&restaurantOrderQueueCap, "order-capacity", 20, "Order queue capacity")
	restaurantCmd.Flags().IntVar(&restaurantCooks, "cooks", 3, "Number of kitchen cooking slots")
	restaurantCmd.Flags().IntVar(&restaurantTrays, "trays", 4, "Number of trays in the pickup pool")
	restaurantCmd.Flags().Float64Var(&restaurantArrivalRate, "rate", 0.3, "Poisson order arrival rate, in orders per tick")
	restaurantCmd.Flags().Float64Var(&restaurantCookMean, "cook-time", 4.0, "Mean exponential cook time, in ticks")
	restaurantCmd.Flags().Float64Var(&restaurantServeMean, "serve-time", 1.0, "Mean exponential serving time, in ticks")
	restaurantCmd.Flags().IntVar(&restaurantOrderCount, "orders", 200, "Stop once this many orders have been served")
}

// restaurantOrder is the load flowing through all three stages: the
// kitchen, the tray hand-off queue, and the pickup/serving stage.
type restaurantOrder struct {
	id int
}

// restaurantModel chains two Queue+Server stages through a shared Pool of
// trays: an order must acquire a tray before it can be served, and the
// tray returns to the pool only once serving completes.
type restaurantModel struct {
	engine.BaseModel
	ctx *engine.RunContext

	gen        *process.Generator[restaurantOrder]
	orderQueue *process.Queue[restaurantOrder]
	kitchen    *process.Server[restaurantOrder]
	trayQueue  *process.Queue[restaurantOrder]
	trayPool   *process.Pool[int]
	service    *process.Server[restaurantOrder]

	trayOf map[int]int

	nextID    int
	completed int
	balked    int
}

func newRestaurantModel(cfg ScenarioConfig) *restaurantModel {
	rng := engine.NewPartitionedRNG(cfg.Seed)

	trays := make([]int, cfg.TrayCount)
	for i := range trays {
		trays[i] = i + 1
	}

	m := &restaurantModel{
		orderQueue: process.NewQueue[restaurantOrder](cfg.QueueCapacity),
		trayQueue:  process.NewQueue[restaurantOrder](process.Unbounded),
		trayPool:   process.NewPool(trays),
		trayOf:     make(map[int]int),
	}

	m.gen = process.NewGenerator(process.GeneratorConfig[restaurantOrder]{
		InterArrival: func(r *rand.Rand) float64 {
			return distuv.Exponential{Rate: cfg.ArrivalRate, Src: r}.Rand()
		},
		Factory: func(r *rand.Rand) restaurantOrder {
			m.nextID++
			return restaurantOrder{id: m.nextID}
		},
		Seed: rng.ForSubsystem("restaurant-arrivals").Int63(),
	})

	m.kitchen = process.NewServer(process.ServerConfig[restaurantOrder]{
		Capacity: cfg.ServerCount,
		ServiceTime: func(_ restaurantOrder, r *rand.Rand) float64 {
			return distuv.Exponential{Rate: 1 / cfg.ServiceMean, Src: r}.Rand()
		},
		Seed: rng.ForSubsystem("restaurant-kitchen").Int63(),
	})

	m.service = process.NewServer(process.ServerConfig[restaurantOrder]{
		Capacity: cfg.TrayCount,
		ServiceTime: func(_ restaurantOrder, r *rand.Rand) float64 {
			return distuv.Exponential{Rate: 1 / restaurantServeMean, Src: r}.Rand()
		},
		Seed: rng.ForSubsystem("restaurant-serving").Int63(),
	})

	return m
}

func (m *restaurantModel) Initialize(ctx *engine.RunContext) error {
	m.ctx = ctx

	m.gen.LoadGenerated.Subscribe(func(s process.LoadGeneratedSignal[restaurantOrder]) {
		if _, err := m.orderQueue.TryScheduleEnqueue(s.Load, m.ctx); err != nil {
			logrus.Warnf("restaurant: order enqueue failed: %v", err)
		}
	})
	m.orderQueue.LoadBalked.Subscribe(func(process.LoadBalkedSignal[restaurantOrder]) { m.balked++ })
	m.orderQueue.LoadEnqueued.Subscribe(func(process.LoadEnqueuedSignal[restaurantOrder]) { m.pullToKitchen() })
	m.orderQueue.LoadDequeued.Subscribe(func(s process.LoadDequeuedSignal[restaurantOrder]) {
		if _, err := m.kitchen.TryStartService(s.Load, m.ctx); err != nil {
			logrus.Warnf("restaurant: kitchen start failed: %v", err)
		}
	})

	m.kitchen.LoadDeparted.Subscribe(func(s process.LoadDepartedSignal[restaurantOrder]) {
		if _, err := m.trayQueue.TryScheduleEnqueue(s.Load, m.ctx); err != nil {
			logrus.Warnf("restaurant: tray-queue enqueue failed: %v", err)
		}
		m.pullToKitchen()
	})

	m.trayQueue.LoadEnqueued.Subscribe(func(process.LoadEnqueuedSignal[restaurantOrder]) { m.pullToTray() })
	m.trayQueue.LoadDequeued.Subscribe(func(s process.LoadDequeuedSignal[restaurantOrder]) {
		tray, ok := m.trayPool.TryAcquire(m.ctx)
		if !ok {
			logrus.Warnf("restaurant: order %d dequeued with no tray available", s.Load.id)
			return
		}
		m.trayOf[s.Load.id] = tray
		if _, err := m.service.TryStartService(s.Load, m.ctx); err != nil {
			logrus.Warnf("restaurant: serving start failed: %v", err)
		}
	})

	m.service.LoadDeparted.Subscribe(func(s process.LoadDepartedSignal[restaurantOrder]) {
		tray := m.trayOf[s.Load.id]
		delete(m.trayOf, s.Load.id)
		if err := m.trayPool.Release(tray, m.ctx); err != nil {
			logrus.Warnf("restaurant: tray release failed: %v", err)
		}
		m.completed++
		m.pullToTray()
	})

	if err := m.gen.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing order generator: %w", err)
	}
	return nil
}

func (m *restaurantModel) pullToKitchen() {
	if m.kitchen.Vacancy() <= 0 {
		return
	}
	if err := m.orderQueue.TriggerDequeueAttempt(m.ctx); err != nil {
		logrus.Warnf("restaurant: kitchen dequeue attempt failed: %v", err)
	}
}

func (m *restaurantModel) pullToTray() {
	if m.trayPool.AvailableCount() <= 0 {
		return
	}
	if err := m.trayQueue.TriggerDequeueAttempt(m.ctx); err != nil {
		logrus.Warnf("restaurant: tray dequeue attempt failed: %v", err)
	}
}

func (m *restaurantModel) WarmedUp(clock float64) {
	m.gen.WarmedUp(clock)
	m.orderQueue.WarmedUp(clock)
	m.kitchen.WarmedUp(clock)
	m.trayQueue.WarmedUp(clock)
	m.trayPool.WarmedUp(clock)
	m.service.WarmedUp(clock)
	m.balked = 0
	m.completed = 0
}

func runRestaurant(cmd *cobra.Command, args []string) {
	setupLogging()

	fileCfg, err := loadScenarioConfig(configPath)
	if err != nil {
		logrus.Fatal(err)
	}
	cfg := ScenarioConfig{
		Seed:          seed,
		RunDuration:   runDuration,
		Warmup:        warmup,
		ArrivalRate:   restaurantArrivalRate,
		QueueCapacity: restaurantOrderQueueCap,
		ServerCount:   restaurantCooks,
		ServiceMean:   restaurantCookMean,
		TrayCount:     restaurantTrays,
		OrderCount:    restaurantOrderCount,
	}
	mergeScenarioConfig(&cfg, fileCfg)

	logrus.Infof("restaurant: order-capacity=%d cooks=%d trays=%d rate=%.3f cook=%.3f serve=%.3f stop-after=%d orders",
		cfg.QueueCapacity, cfg.ServerCount, cfg.TrayCount, cfg.ArrivalRate, cfg.ServiceMean, restaurantServeMean, cfg.OrderCount)

	model := newRestaurantModel(cfg)

	var strategy engine.RunStrategy
	predicate := func(ctx *engine.RunContext) bool { return model.completed < cfg.OrderCount }
	if cfg.Warmup > 0 {
		strategy = engine.NewConditionalStrategyWithWarmup(predicate, cfg.Warmup)
	} else {
		strategy = engine.NewConditionalStrategy(predicate)
	}

	k := engine.NewKernel(strategy, model, engine.WithProfile("restaurant", "Kitchen/tray network demo"))
	result, err := k.Run()
	if err != nil {
		logrus.Fatalf("restaurant run failed: %v", err)
	}

	logrus.Infof("executed %d events, final clock %.3f, real time %s",
		result.ExecutedEventCount, result.FinalClockTime, result.RealTimeDuration)
	logrus.Infof("completed=%d balked=%d kitchen occupancy avg=%.3f tray busy avg=%.3f serving occupancy avg=%.3f",
		model.completed, model.balked,
		model.kitchen.InServiceStats().AverageCount(),
		model.trayPool.BusyStats().AverageCount(),
		model.service.InServiceStats().AverageCount())
}
