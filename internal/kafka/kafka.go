// Package kafka provides topic bootstrap for the batch queue and a broker readiness probe
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// TopicConfigs describes the queue topics: batches are keyed by UID, one partition keeps them in order.
func TopicConfigs(topics ...string) []kafkago.TopicConfig {
	cfgs := make([]kafkago.TopicConfig, 0, len(topics))
	for _, t := range topics {
		if t == "" {
			continue
		}
		cfgs = append(cfgs, kafkago.TopicConfig{
			Topic:             t,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}
	return cfgs
}

// InitKafkaTopics - creates topics in kafka, retrying until ctx is done
func InitKafkaTopics(ctx context.Context, brokerAddr string, delay time.Duration, topics ...string) error {
	client := &kafkago.Client{
		Addr:    kafkago.TCP(brokerAddr),
		Timeout: 10 * time.Second,
	}

	req := kafkago.CreateTopicsRequest{Topics: TopicConfigs(topics...)}
	if len(req.Topics) == 0 {
		return errors.New("no topics to create")
	}

	for {
		resp, err := client.CreateTopics(ctx, &req)
		switch {
		case err != nil:
			log.Printf("Failed to run topics creation request: %v\nWait %v before next try...", err, delay)
		case len(topicErrors(resp.Errors)) > 0:
			log.Printf("Topics creation errors: %v\nWait %v before next try...", topicErrors(resp.Errors), delay)
		default:
			log.Println("All topics created successfully!")
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("InitKafkaTopics canceled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
}

// topicErrors drops "already exists" - it is a success for us
func topicErrors(errs map[string]error) map[string]error {
	failed := make(map[string]error)
	for k, v := range errs {
		if v == nil || errors.Is(v, kafkago.TopicAlreadyExists) {
			continue
		}
		failed[k] = v
	}
	return failed
}

// WaitKafkaReady - timeout given to kafka-service for getting fully functional
func WaitKafkaReady(ctx context.Context, brokerAddr string, delay time.Duration) error {
	dialer := &kafkago.Dialer{Timeout: 5 * time.Second}
	for {
		conn, err := dialer.DialContext(ctx, "tcp", brokerAddr)
		if err == nil {
			if errConn := conn.Close(); errConn != nil {
				log.Println("Failed to close connection after testing Kafka readyness:", errConn)
			}
			log.Println("Kafka is ready!")
			return nil
		}

		log.Printf("Kafka not ready, retrying in %v...", delay)
		select {
		case <-ctx.Done():
			return fmt.Errorf("kafka at %s is not reachable: %w", brokerAddr, ctx.Err())
		case <-time.After(delay):
		}
	}
}
