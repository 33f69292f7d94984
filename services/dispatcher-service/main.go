package main

import (
	"encoding/json"
	"log"

	"corruption-reporting-portal/pkg/config"
	"corruption-reporting-portal/pkg/queue"
	"corruption-reporting-portal/services/report-service/models"
)

const queueName = "report_queue"

// routeReport picks the investigative unit for a new case. Routing works
// from the case facts alone; the event never carries reporter identity.
func routeReport(event models.ReportEvent) string {
	if event.Severity == "critical" {
		return "SPECIAL INVESTIGATIONS UNIT"
	}
	switch event.Sector {
	case "public":
		return "PUBLIC SECTOR OVERSIGHT DIVISION"
	case "parapublic":
		return "STATE ENTERPRISES AUDIT DIVISION"
	case "prive":
		return "PRIVATE SECTOR COMPLIANCE DIVISION"
	default:
		return "CENTRAL CASE INTAKE DESK"
	}
}

func dispatch(event models.ReportEvent) {
	unit := routeReport(event)
	log.Printf("[INFO] Report %s (%s / %s, severity %s) routed to: %s",
		event.ID, event.Sector, event.CorruptionType, event.Severity, unit)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[ERROR] Configuration invalid: %v", err)
	}

	conn, ch, err := queue.ConnectRabbitMQ(cfg.AMQPURI)
	if err != nil {
		log.Fatalf("[ERROR] Failed to connect to RabbitMQ: %v", err)
	}
	defer conn.Close()
	defer ch.Close()

	msgs, err := queue.ConsumeMessages(ch, queueName)
	if err != nil {
		log.Fatalf("[ERROR] Failed to consume queue: %v", err)
	}

	log.Printf("[INFO] Dispatcher Service waiting on queue %q", queueName)

	forever := make(chan bool)
	go func() {
		for d := range msgs {
			var event models.ReportEvent
			if err := json.Unmarshal(d.Body, &event); err != nil {
				log.Printf("[WARN] Discarding unparseable message: %v", err)
				continue
			}
			dispatch(event)
		}
	}()
	<-forever
}
