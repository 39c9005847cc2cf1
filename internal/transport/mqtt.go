package transport

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gps-gateway/internal/config"
)

// MQTTSource 订阅 MQTT 主题的消息来源
type MQTTSource struct {
	cfg       cfgpkg.MQTTConfig
	log       *zap.Logger
	connected atomic.Bool
}

// NewMQTTSource 创建 MQTT 来源
func NewMQTTSource(cfg cfgpkg.MQTTConfig, log *zap.Logger) *MQTTSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &MQTTSource{cfg: cfg, log: log}
}

// Name 来源名称
func (s *MQTTSource) Name() string { return "mqtt" }

// Connected 当前是否已连接 broker
func (s *MQTTSource) Connected() bool { return s.connected.Load() }

func (s *MQTTSource) options(h Handler) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(30 * time.Second).
		SetCleanSession(true)
	if s.cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(s.cfg.ConnectTimeout)
	}
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}

	// 每次（重）连接后重新订阅
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		s.connected.Store(true)
		s.log.Info("mqtt connected", zap.String("broker", s.cfg.Broker))
		tok := c.Subscribe(s.cfg.Topic, s.cfg.QoS, func(_ mqtt.Client, m mqtt.Message) {
			s.deliver(m, h)
		})
		go func() {
			tok.Wait()
			if err := tok.Error(); err != nil {
				s.log.Error("mqtt subscribe failed", zap.String("topic", s.cfg.Topic), zap.Error(err))
				return
			}
			s.log.Info("mqtt subscribed", zap.String("topic", s.cfg.Topic), zap.Uint8("qos", s.cfg.QoS))
		}()
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.connected.Store(false)
		s.log.Warn("mqtt connection lost", zap.Error(err))
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		s.log.Info("mqtt reconnecting", zap.String("broker", s.cfg.Broker))
	})
	return opts
}

func (s *MQTTSource) deliver(m mqtt.Message, h Handler) {
	payload := append([]byte(nil), m.Payload()...)
	h(NewMessage(s.Name(), m.Topic(), payload))
}

// Run 连接 broker 并持续投递消息，直到 ctx 结束
func (s *MQTTSource) Run(ctx context.Context, h Handler) error {
	if h == nil {
		return errors.New("mqtt: nil handler")
	}
	client := mqtt.NewClient(s.options(h))
	tok := client.Connect()
	select {
	case <-ctx.Done():
		return nil
	case <-tok.Done():
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", s.cfg.Broker, err)
	}

	<-ctx.Done()
	client.Unsubscribe(s.cfg.Topic).WaitTimeout(time.Second)
	client.Disconnect(250)
	s.connected.Store(false)
	s.log.Info("mqtt source stopped")
	return nil
}
