// Package kafka carries tasks over Kafka using franz-go. The Publisher
// writes due tasks as records keyed by task name; the Consumer reads them
// back as task deliveries and commits offsets only once every earlier
// record on the same partition has been acked.
package kafka
