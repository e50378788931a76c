// Command heartbeatagentd is a reference wiring of the heartbeat agent: it
// loads configuration the teacher's way (config package), dials the DIR
// over gRPC with the requested transport scheme, wraps the client in a
// circuit breaker, wires the optional lifecycle-event sinks, and runs
// the agent until an OS signal requests shutdown. It replaces the teacher's
// example/ directory, which demonstrated the same kind of top-level wiring
// for the teacher's own service.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	heartbeat "github.com/xtreemfs/heartbeat-agent"
	"github.com/xtreemfs/heartbeat-agent/config"
	"github.com/xtreemfs/heartbeat-agent/internal/dirrpc"
	"github.com/xtreemfs/heartbeat-agent/internal/eventbus"
	"github.com/xtreemfs/heartbeat-agent/internal/hblog"
	"github.com/xtreemfs/heartbeat-agent/internal/statusapi"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func main() {
	configFile := flag.String("config", "", "path to a heartbeatagentd config file (yaml/json/toml, per viper)")
	flag.Parse()

	cfg, err := config.Load(*configFile, "HEARTBEATAGENTD", false)
	if err != nil {
		fmt.Fprintln(os.Stderr, "heartbeatagentd:", err)
		os.Exit(1)
	}

	log := hblog.New(hblog.Options{Level: "info"}).With(hblog.Fields{"uuid": cfg.ServiceUUID, "component": "main"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = initCircuitBreaker("heartbeatagentd", "heartbeatagentd.dir", log.With(hblog.Fields{"component": "circuit_breaker"}))

	client, conn, err := dialDIR(cfg)
	if err != nil {
		log.Error("failed to dial DIR", hblog.Fields{"error": err})
		os.Exit(1)
	}
	if conn != nil {
		defer conn.Close()
	}

	bus := buildEventBus(cfg, log.With(hblog.Fields{"component": "eventbus"}))

	agent := heartbeat.New(heartbeat.Config{
		UUID:   cfg.ServiceUUID,
		Client: client,
		Generator: heartbeat.ServiceGeneratorFunc(func() ([]heartbeat.ServiceRecord, error) {
			return []heartbeat.ServiceRecord{{
				UUID: cfg.ServiceUUID,
				Type: heartbeat.ServiceType(cfg.ServiceType),
				Name: cfg.ServiceName,
			}}, nil
		}),
		Endpoint: heartbeat.EndpointConfig{
			Port: cfg.AdvertisedPort,
			Scheme: heartbeat.TransportScheme{
				UseSSL:      cfg.UseSSL,
				GridSSLMode: cfg.UseGridSSL,
			},
		},
		ConfigurationData:     config.ServiceAttributeStrings(cfg),
		Bus:                   bus,
		Logger:                log,
		UpdateInterval:        time.Duration(cfg.UpdateIntervalMillis) * time.Millisecond,
		ConflictRetryInterval: time.Duration(cfg.ConflictRetryIntervalMillis) * time.Millisecond,
	})

	if err := agent.Initialize(ctx); err != nil {
		log.Error("initial registration failed", hblog.Fields{"error": err})
		os.Exit(1)
	}
	agent.Start(ctx)

	if cfg.StatusAPIEnabled {
		go serveStatusAPI(cfg, agent, log.With(hblog.Fields{"component": "statusapi"}))
	}

	<-ctx.Done()
	log.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	agent.Shutdown(shutdownCtx)
}

func dialDIR(cfg *config.Config) (heartbeat.DIRClient, *grpc.ClientConn, error) {
	protocol := heartbeat.Protocol(cfg.Scheme)

	creds, err := heartbeat.BuildClientCredentials(protocol, heartbeat.TLSConfig{
		CertFile:             cfg.CertFile,
		KeyFile:              cfg.KeyFile,
		CACertFile:           cfg.CACertFile,
		GridKeystoreFile:     cfg.GridKeystoreFile,
		GridKeystorePassword: cfg.PKCS12Pass,
	})
	if err != nil {
		return nil, nil, err
	}
	if creds == nil {
		creds = insecure.NewCredentials()
	}

	conn, err := grpc.Dial(cfg.DIREndpoint,
		grpc.WithTransportCredentials(creds),
		grpc.WithChainUnaryInterceptor(dirrpc.CredentialsInterceptor(
			heartbeat.DefaultCredentials().AuthType,
			heartbeat.DefaultCredentials().Username,
			heartbeat.DefaultCredentials().Group,
		)),
	)
	if err != nil {
		return nil, nil, err
	}

	client := dirrpc.NewClient(conn)
	return heartbeat.WithCircuitBreaker(client, "heartbeatagentd.dir"), conn, nil
}

func buildEventBus(cfg *config.Config, log *hblog.Logger) heartbeat.EventBus {
	var buses heartbeat.MultiBus

	if cfg.AMQPURL != "" {
		amqpBus, err := eventbus.NewAMQPBus(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			log.Warn("failed to connect lifecycle event amqp bus, continuing without it", hblog.Fields{"error": err})
		} else {
			buses = append(buses, amqpBus)
		}
	}
	if cfg.WebhookURL != "" {
		buses = append(buses, eventbus.NewWebhookBus(cfg.WebhookURL, log))
	}

	if len(buses) == 0 {
		return nil
	}
	return buses
}

func serveStatusAPI(cfg *config.Config, agent *heartbeat.Agent, log *hblog.Logger) {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	statusapi.New(agent).Register(engine)

	addr := cfg.StatusAPIAddr
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{Addr: addr, Handler: engine}
	log.Info("status api listening", hblog.Fields{"addr": addr})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Warn("status api stopped", hblog.Fields{"error": err})
	}
}
