// Package api serves a read-only HTTP view of the loaded definitions and
// the known devices.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/acheta/depth2mqtt/internal/db"
	"github.com/acheta/depth2mqtt/internal/definition"
	"github.com/acheta/depth2mqtt/internal/mqtt"
	"github.com/acheta/depth2mqtt/internal/registry"
)

type Config struct {
	ListenAddr string
	Logger     *zap.Logger
	Registry   *registry.Registry
	Database   db.DeviceDB
}

type WebBackend struct {
	cfg    Config
	r      *gin.Engine
	server *http.Server
}

func New(cfg Config) (*WebBackend, error) {
	if cfg.Registry == nil || cfg.Database == nil {
		return nil, fmt.Errorf("api needs a registry and a device database")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(ginzap.Ginzap(cfg.Logger, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(cfg.Logger, true))

	b := &WebBackend{
		cfg: cfg,
		r:   r,
		server: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	r.GET("/healthz", b.Health)
	api := r.Group("/api")
	api.GET("/definitions", b.Definitions)
	api.GET("/definitions/:model", b.Definition)
	api.GET("/devices", b.Devices)
	api.GET("/devices/:ieee", b.Device)

	return b, nil
}

func (b *WebBackend) Handler() http.Handler {
	return b.r
}

// Run blocks until the server is shut down.
func (b *WebBackend) Run() error {
	b.cfg.Logger.Info("listening", zap.String("addr", b.cfg.ListenAddr))
	if err := b.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (b *WebBackend) Shutdown(ctx context.Context) error {
	return b.server.Shutdown(ctx)
}

func (b *WebBackend) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (b *WebBackend) Definitions(c *gin.Context) {
	defs := b.cfg.Registry.All()

	ret := make([]mqtt.DefinitionMessage, len(defs))
	for i, d := range defs {
		ret[i] = mqtt.NewDefinitionMessage(d)
	}

	c.JSON(http.StatusOK, ret)
}

// Definition looks the definition up by model name or by any of its
// zigbee model identifiers.
func (b *WebBackend) Definition(c *gin.Context) {
	model := c.Param("model")

	for _, d := range b.cfg.Registry.All() {
		if d.Model == model || d.Matches(model) {
			c.JSON(http.StatusOK, mqtt.NewDefinitionMessage(d))
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no definition for model %q", model)})
}

func (b *WebBackend) Devices(c *gin.Context) {
	devices, err := b.cfg.Database.GetDevices(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ret := make([]mqtt.DeviceInfo, len(devices))
	for i, d := range devices {
		ret[i] = mqtt.NewDeviceInfo(d)
	}

	c.JSON(http.StatusOK, ret)
}

type deviceDetails struct {
	mqtt.DeviceInfo
	Exposes []definition.Expose `json:"exposes,omitempty"`
}

func (b *WebBackend) Device(c *gin.Context) {
	ieee, err := strconv.ParseUint(strings.TrimPrefix(c.Param("ieee"), "0x"), 16, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device address must be hexadecimal"})
		return
	}

	device, err := b.cfg.Database.GetDevice(c.Request.Context(), ieee)
	if errors.Is(err, db.ErrDeviceNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ret := deviceDetails{DeviceInfo: mqtt.NewDeviceInfo(device)}
	if def, ok := b.cfg.Registry.Find(device.ModelID); ok && device.Definition != "" {
		ret.Exposes = def.Exposes()
	}

	c.JSON(http.StatusOK, ret)
}
