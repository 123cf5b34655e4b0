package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shimmeringbee/zigbee"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/acheta/depth2mqtt/internal/api"
	"github.com/acheta/depth2mqtt/internal/configuration"
	"github.com/acheta/depth2mqtt/internal/converter"
	"github.com/acheta/depth2mqtt/internal/db"
	"github.com/acheta/depth2mqtt/internal/logger"
	"github.com/acheta/depth2mqtt/internal/mqtt"
	"github.com/acheta/depth2mqtt/internal/router"
	"github.com/acheta/depth2mqtt/internal/types"
	"github.com/acheta/depth2mqtt/internal/zcldef"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "start the gateway",
		Action: run,
	}
}

func run(ctx context.Context, c *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.GetLogger("[main]")

	configService, err := configuration.Init(c.String("config"))
	if err != nil {
		return fmt.Errorf("configuration initialization: %w", err)
	}
	cfg := configService.GetConfiguration()
	log.Info("configuration loaded from %v", configService.Filename())

	if cfg.LogLevel != "" {
		if err := logger.SetLevel(cfg.LogLevel); err != nil {
			return err
		}
	}

	zclDefService, err := zcldef.New("")
	if err != nil {
		return err
	}

	reg, err := newRegistry(cfg.Definitions)
	if err != nil {
		return fmt.Errorf("loading definitions: %w", err)
	}
	log.Info("%d definitions loaded", len(reg.All()))

	database, err := db.NewDeviceDB(cfg.DataDirectory, db.DeviceDBOptions{})
	if err != nil {
		return fmt.Errorf("db initialization: %w", err)
	}
	defer database.Close(ctx)

	mqttClient, mqttDisconnect, err := mqtt.NewClient(&cfg)
	if err != nil {
		return err
	}
	defer mqttDisconnect()

	mqttRouter := router.NewMQTTRouter(configService, mqttClient, database, reg)
	zRouter := router.NewZigbeeRouter(zclDefService, database, reg, converter.New(zclDefService), &cfg)

	setupSubscriptions(ctx, mqttRouter, zRouter)

	if err := zRouter.StartAsync(ctx); err != nil {
		return err
	}
	defer zRouter.Stop()

	mqttRouter.PublishDefinitions()

	if cfg.Api.Enabled {
		backend, err := api.New(api.Config{
			ListenAddr: cfg.Api.Address,
			Logger:     logger.Root().WithOptions(zap.AddCallerSkip(-1)).Named("http"),
			Registry:   reg,
			Database:   database,
		})
		if err != nil {
			return err
		}
		go func() {
			if err := backend.Run(); err != nil {
				log.Error("HTTP API stopped: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			backend.Shutdown(shutdownCtx)
		}()
	}

	<-ctx.Done()

	log.Info("exiting app...")

	return nil
}

func setupSubscriptions(ctx context.Context, mqttRouter router.MQTTRouter, zRouter router.ZigbeeRouter) {
	mqttRouter.SubscribeOnCommandMessage(func(devCmd types.DeviceCommandMessage) {
		zRouter.ProccessCommandMessageToDevice(ctx, devCmd)
	})
	mqttRouter.SubscribeOnSetMessage(func(devCmd types.DeviceSetMessage) {
		zRouter.ProccessSetMessageToDevice(ctx, devCmd)
	})
	mqttRouter.SubscribeOnGetMessage(func(devCmd types.DeviceGetMessage) {
		zRouter.ProccessGetMessageToDevice(ctx, devCmd)
	})
	mqttRouter.SubscribeOnStateGetMessage(func(devCmd types.DeviceStateGetMessage) {
		zRouter.ProccessStateGetMessageToDevice(ctx, devCmd)
	})
	mqttRouter.SubscribeOnExploreMessage(func(devCmd types.DeviceExploreMessage) {
		zRouter.ProccessGetDeviceDescriptionMessage(ctx, devCmd)
	})
	mqttRouter.SubscribeOnSetDeviceConfigMessage(func(devCmd types.DeviceConfigSetMessage) {
		zRouter.ProccessSetDeviceConfigMessage(ctx, devCmd)
	})
	zRouter.SubscribeOnDeviceState(func(devMsg mqtt.DeviceStateMessage) {
		mqttRouter.PublishDeviceMessage(devMsg.IEEEAddress, devMsg.Payload(), "")
	})
	zRouter.SubscribeOnDeviceMessage(func(devMsg mqtt.DeviceMessage) {
		mqttRouter.PublishDeviceMessage(devMsg.IEEEAddress, devMsg, "")
	})
	zRouter.SubscribeOnDeviceInterview(func(devMsg mqtt.DeviceInterviewMessage) {
		mqttRouter.PublishDeviceMessage(devMsg.IEEEAddress, devMsg, "interview")
	})
	zRouter.SubscribeOnDeviceDescription(func(devDscMsg mqtt.DeviceDescriptionMessage) {
		mqttRouter.PublishDeviceMessage(devDscMsg.IEEEAddress, devDscMsg, "description")
	})
	zRouter.SubscribeOnDeviceJoin(func(e zigbee.NodeJoinEvent) {
		mqttRouter.PublishDeviceMessage(uint64(e.IEEEAddress), e, "join")
	})
	zRouter.SubscribeOnDeviceLeave(func(e zigbee.NodeLeaveEvent) {
		mqttRouter.PublishDeviceMessage(uint64(e.IEEEAddress), e, "leave")
	})
	zRouter.SubscribeOnDeviceUpdate(func(e zigbee.NodeUpdateEvent) {
		mqttRouter.PublishDeviceMessage(uint64(e.IEEEAddress), e, "update")
	})
}
