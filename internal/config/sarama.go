package config

import (
	"fmt"

	"github.com/IBM/sarama"
)

// Sarama translates the kafka section into a client config shared by the
// position consumer and the dangerous-driving producer.
func (k Kafka) Sarama() (*sarama.Config, error) {
	ver, err := sarama.ParseKafkaVersion(k.Version)
	if err != nil {
		return nil, err
	}
	sc := sarama.NewConfig()
	sc.Version = ver
	sc.ClientID = k.ClientID

	sc.Consumer.Return.Errors = true
	sc.Consumer.Offsets.AutoCommit.Enable = true
	sc.Consumer.Offsets.AutoCommit.Interval = k.CommitInterval
	switch k.StartFrom {
	case "newest":
		sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	default:
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	}

	// SyncProducer needs both channels.
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	switch k.Acks {
	case "none":
		sc.Producer.RequiredAcks = sarama.NoResponse
	case "leader":
		sc.Producer.RequiredAcks = sarama.WaitForLocal
	default:
		sc.Producer.RequiredAcks = sarama.WaitForAll
	}

	if k.TLSEnabled {
		sc.Net.TLS.Enable = true
	}
	if k.SASLUser != "" {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.User, sc.Net.SASL.Password = k.SASLUser, k.SASLPass
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("sarama config: %w", err)
	}
	return sc, nil
}
