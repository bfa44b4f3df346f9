package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/agendaapp/agenda-api/internal/config"
	"github.com/agendaapp/agenda-api/internal/mail"
	"github.com/agendaapp/agenda-api/internal/mailqueue"
	redisclient "github.com/agendaapp/agenda-api/internal/redis"
)

const dequeueTimeout = 5 * time.Second

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("mail-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running mail worker in env=%s queue=%s smtp=%s:%s", cfg.Env, cfg.MailQueueKey, cfg.SMTPHost, cfg.SMTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	queue := mailqueue.NewQueue(rdb, cfg.MailQueueKey)
	sender := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.MailFrom)

	for {
		if rootCtx.Err() != nil {
			log.Println("shutdown signal received, stopping mail worker")
			return
		}

		job, err := queue.Dequeue(rootCtx, dequeueTimeout)
		if err != nil {
			if errors.Is(err, mailqueue.ErrEmpty) || rootCtx.Err() != nil {
				continue
			}
			log.Printf("dequeue error: %v", err)
			time.Sleep(time.Second)
			continue
		}

		handleJob(job, sender)
	}
}

func handleJob(job *mailqueue.Job, sender mail.Sender) {
	switch job.Kind {
	case mailqueue.KindCancellationMail:
		var payload mailqueue.CancellationMail
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			log.Printf("decode %s payload: %v", job.Kind, err)
			return
		}

		to, subject, body := mail.RenderCancellation(payload)
		start := time.Now()
		if err := sender.Send(to, subject, body); err != nil {
			log.Printf("send cancellation mail for appointment %d: %v", payload.AppointmentID, err)
			return
		}
		log.Printf("sent cancellation mail for appointment %d in %s", payload.AppointmentID, time.Since(start))
	default:
		log.Printf("unknown job kind %q, dropping", job.Kind)
	}
}
