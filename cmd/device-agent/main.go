// Command device-agent is a runnable demonstration of the loclient facade:
// it attaches a status set, a data stream, a command and an updatable
// resource, then runs the session thread until interrupted.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"

	"github.com/orange-lo/iotsoftbox-go/loclient"
	"github.com/orange-lo/iotsoftbox-go/registry"
	"github.com/orange-lo/iotsoftbox-go/session"
	"github.com/orange-lo/iotsoftbox-go/transport"
	"github.com/orange-lo/iotsoftbox-go/value"
)

type config struct {
	BrokerAddr  string        `env:"DEVICE_AGENT_BROKER_ADDR" envDefault:"localhost:1883"`
	Namespace   string        `env:"DEVICE_AGENT_NAMESPACE,required"`
	DeviceID    string        `env:"DEVICE_AGENT_DEVICE_ID,required"`
	APIKey      string        `env:"DEVICE_AGENT_API_KEY"`
	LogLevel    string        `env:"DEVICE_AGENT_LOG_LEVEL" envDefault:"info"`
	FrameDump   bool          `env:"DEVICE_AGENT_FRAME_DUMP" envDefault:"false"`
	PublishRate time.Duration `env:"DEVICE_AGENT_PUBLISH_INTERVAL" envDefault:"30s"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("device-agent: load configuration: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	opts := []loclient.Option{
		loclient.WithLogger(logger),
	}
	if cfg.APIKey != "" {
		opts = append(opts, loclient.WithAPIKey(cfg.APIKey))
	}

	c, err := loclient.New(cfg.BrokerAddr, opts...)
	if err != nil {
		return fmt.Errorf("device-agent: construct client: %w", err)
	}
	c.SetNamespace(cfg.Namespace)
	c.SetDeviceID(cfg.DeviceID)
	if cfg.FrameDump {
		c.SetDbgDump(transport.FrameLogFull)
	}

	statusHandle := attachStatus(c)
	dataHandle := attachData(c, cfg.Namespace, cfg.DeviceID)
	attachReboot(c)
	attachFirmware(c, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go periodicPublish(ctx, c, dataHandle, statusHandle, cfg.PublishRate)

	logger.Info("device-agent starting", "broker", cfg.BrokerAddr, "namespace", cfg.Namespace, "device", cfg.DeviceID)
	err = c.Run(ctx, session.StateCallback(func(s session.State) {
		logger.Info("session state", "state", s.String())
	}))
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("device-agent: run: %w", err)
	}
	return nil
}

// uptime is read by the status collection below; a real device would back
// this with whatever the platform exposes.
var startedAt = time.Now()

func attachStatus(c *loclient.Client) int {
	coll := value.NewCollection()
	coll.Add(value.Scalar("fw_version", func() value.Value { return value.String("1.0.0") }))
	coll.Add(value.Scalar("uptime_s", func() value.Value {
		return value.Int(int32(time.Since(startedAt).Seconds()))
	}))
	coll.Add(value.Scalar("goroutines", func() value.Value {
		return value.Int(int32(runtime.NumGoroutine()))
	}))
	h, err := c.AttachStatus("agent", coll)
	if err != nil {
		panic(err)
	}
	return h
}

func attachData(c *loclient.Client, namespace, deviceID string) int {
	coll := value.NewCollection()
	coll.Add(value.Scalar("temperature", func() value.Value {
		return value.Float64(20 + rand.Float64()*5)
	}))
	coll.Add(value.Scalar("humidity", func() value.Value {
		return value.Float64(40 + rand.Float64()*10)
	}))
	h, err := c.AttachData("env", coll)
	if err != nil {
		panic(err)
	}
	ds, err := c.DataStream(h)
	if err != nil {
		panic(err)
	}
	ds.SetStreamID(registry.StreamIDURN, namespace, deviceID, "env")
	ds.Model = "env-sensor-v1"
	return h
}

func periodicPublish(ctx context.Context, c *loclient.Client, dataHandle, statusHandle int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.PushData(dataHandle)
			_ = c.PushStatus(statusHandle)
		}
	}
}

func attachReboot(c *loclient.Client) {
	cb := func(cid int, args map[string]value.Value) int {
		delay := 0
		if v, ok := args["delay_s"]; ok {
			delay = int(v.I)
		}
		go func() {
			time.Sleep(time.Duration(delay) * time.Second)
		}()
		return 1
	}
	if _, err := c.AttachCommand("reboot", cb); err != nil {
		panic(err)
	}
	c.ControlCommands(true)
}

func attachFirmware(c *loclient.Client, logger *slog.Logger) {
	notify := func(result int, newVersion string) {
		// Each applied-firmware event gets its own idempotency token, so a
		// downstream consumer that sees the same event twice (e.g. after a
		// reconnect replays this ad-hoc publish) can dedupe on it.
		token := uuid.New().String()
		logger.Info("firmware update finished", "result", result, "version", newVersion, "event_id", token)
		event := fmt.Sprintf(`{"event_id":%q,"result":%d,"version":%q}`, token, result, newVersion)
		if err := c.Publish("dev/rsc/applied", []byte(event)); err != nil {
			logger.Warn("failed to publish firmware-applied event", "err", err)
		}
	}
	if _, err := c.AttachResource("firmware", "1.0.0", notify, nil); err != nil {
		panic(err)
	}
	c.ControlResources(true)
}
