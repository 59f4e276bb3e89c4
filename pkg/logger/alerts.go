package logger

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// AlertPublisher ships aggregated alerts to an operator-facing sink.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, topic string, alerts []Alert) error
}

// AlertConfig controls how error logs are folded into alerts.
type AlertConfig struct {
	FlushInterval time.Duration // periodic flush, e.g. 30s
	MaxDistinct   int           // flush early once this many distinct alerts are pending
	Topic         string
	Publisher     AlertPublisher
}

// Alert is one distinct error log with its occurrence count.
type Alert struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// AlertCollector deduplicates error logs and publishes them in batches.
type AlertCollector struct {
	cfg     AlertConfig
	pending map[string]*Alert
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewAlertCollector starts the periodic flush loop.
func NewAlertCollector(cfg *AlertConfig) *AlertCollector {
	c := &AlertCollector{cfg: *cfg, pending: make(map[string]*Alert)}
	if c.cfg.FlushInterval <= 0 {
		c.cfg.FlushInterval = 30 * time.Second
	}
	if c.cfg.MaxDistinct <= 0 {
		c.cfg.MaxDistinct = 100
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.wg.Add(1)
	go c.loop()
	return c
}

// Add records one occurrence of an error log.
func (c *AlertCollector) Add(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := alertKey(level, message, fields, caller)

	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.pending[key]; ok {
		a.Count++
		a.LastSeen = now
	} else {
		c.pending[key] = &Alert{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}

	if len(c.pending) >= c.cfg.MaxDistinct {
		c.flushLocked()
	}
}

// Close performs a final flush and stops the loop.
func (c *AlertCollector) Close() {
	c.cancel()
	c.wg.Wait()
}

func alertKey(level, message string, fields map[string]interface{}, caller string) string {
	b, _ := json.Marshal(struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
		Caller  string                 `json:"caller"`
	}{level, message, fields, caller})
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%x", sum)
}

func (c *AlertCollector) loop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.flushLocked()
			c.mu.Unlock()
		case <-c.ctx.Done():
			c.mu.Lock()
			batch := c.drainLocked()
			c.mu.Unlock()
			c.publish(batch)
			return
		}
	}
}

func (c *AlertCollector) drainLocked() []Alert {
	if len(c.pending) == 0 {
		return nil
	}
	out := make([]Alert, 0, len(c.pending))
	for _, a := range c.pending {
		out = append(out, *a)
	}
	c.pending = make(map[string]*Alert)
	return out
}

// flushLocked publishes asynchronously; callers hold c.mu.
func (c *AlertCollector) flushLocked() {
	batch := c.drainLocked()
	if batch == nil {
		return
	}
	go c.publish(batch)
}

func (c *AlertCollector) publish(batch []Alert) {
	if len(batch) == 0 || c.cfg.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.cfg.Publisher.PublishAlerts(ctx, c.cfg.Topic, batch); err != nil {
		// Cannot log through the logger that feeds us.
		fmt.Fprintf(os.Stderr, "alert publish failed: %v\n", err)
	}
}
