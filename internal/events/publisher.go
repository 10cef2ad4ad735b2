package events

import (
	"encoding/json"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/snarg/scribed/internal/pipeline"
)

// Publisher pushes job lifecycle events to an MQTT broker so external
// consumers can follow transcriptions without polling the API.
//
// Topics: {prefix}/jobs/{id}/progress, {prefix}/jobs/{id}/completed,
// {prefix}/jobs/{id}/failed.
type Publisher struct {
	conn      mqtt.Client
	prefix    string
	connected atomic.Bool
	log       zerolog.Logger
}

type Options struct {
	BrokerURL   string
	ClientID    string
	TopicPrefix string
	Username    string
	Password    string
	Log         zerolog.Logger
}

func Connect(opts Options) (*Publisher, error) {
	p := &Publisher{
		prefix: opts.TopicPrefix,
		log:    opts.Log.With().Str("component", "mqtt").Logger(),
	}
	if p.prefix == "" {
		p.prefix = "scribed"
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	p.conn = mqtt.NewClient(clientOpts)
	token := p.conn.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Publisher) onConnect(mqtt.Client) {
	p.connected.Store(true)
	p.log.Info().Msg("mqtt connected")
}

func (p *Publisher) onConnectionLost(_ mqtt.Client, err error) {
	p.connected.Store(false)
	p.log.Warn().Err(err).Msg("mqtt connection lost, will auto-reconnect")
}

func (p *Publisher) IsConnected() bool {
	return p.connected.Load()
}

func (p *Publisher) Close() {
	p.log.Info().Msg("disconnecting mqtt client")
	p.conn.Disconnect(1000)
}

// PublishProgress emits one progress snapshot. Fire and forget: the broker
// being down never slows a transcription.
func (p *Publisher) PublishProgress(jobID string, prog pipeline.Progress) {
	p.publish(jobID, "progress", prog)
}

// PublishComplete emits the final result of a finished job.
func (p *Publisher) PublishComplete(jobID, filename string, res *pipeline.Result) {
	p.publish(jobID, "completed", map[string]any{
		"filename":     filename,
		"text":         res.Text,
		"route":        res.Route,
		"total_chunks": res.TotalChunks,
		"elapsed_ms":   res.Elapsed.Milliseconds(),
	})
}

// PublishFailed emits a terminal failure.
func (p *Publisher) PublishFailed(jobID, message, category string) {
	p.publish(jobID, "failed", map[string]any{
		"error":    message,
		"category": category,
	})
}

func (p *Publisher) publish(jobID, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.log.Error().Err(err).Str("job_id", jobID).Msg("event marshal failed")
		return
	}
	topic := p.prefix + "/jobs/" + jobID + "/" + event
	p.conn.Publish(topic, 0, false, data)
}
