package bus

import (
	"fmt"
	"strings"

	"github.com/screenlab/screensim/internal/config"
	"github.com/screenlab/screensim/internal/pkg/errors"
	"github.com/screenlab/screensim/internal/pkg/logger"
)

// NewBus creates a Bus from configuration. When an event log path is set
// the bus is wrapped so every published event is also journaled to disk.
func NewBus(cfg config.BusConfig, log *logger.Logger) (Bus, error) {
	if log == nil {
		log = logger.Default()
	}

	var inner Bus
	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		inner = NewMemoryBusWithLogger(log)

	case "kafka":
		brokers := ParseKafkaBrokers(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, errors.New(errors.CodeValidation, "kafka brokers not configured")
		}

		consumerGroup := cfg.KafkaGroup
		if consumerGroup == "" {
			consumerGroup = "screensim"
		}

		kb, err := NewKafkaBus(KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: consumerGroup,
			ClientID:      "screensim-bus",
		}, log)
		if err != nil {
			return nil, err
		}
		inner = kb

	default:
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown bus type: %s", cfg.Type))
	}

	if cfg.EventLog == "" {
		return inner, nil
	}

	journal, err := NewEventLogger(cfg.EventLog, true)
	if err != nil {
		inner.Close()
		return nil, errors.Wrap(errors.CodeInternal, "opening event log", err)
	}
	return NewLoggedBus(inner, journal, log), nil
}
