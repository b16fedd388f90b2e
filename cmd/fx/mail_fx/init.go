package mail_fx

import (
	"log"
	"os"
	"strconv"

	"go.uber.org/fx"
	"nexora/internal/services"
)

var Module = fx.Provide(
	provideNotifier)

func provideNotifier() services.Notifier {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		log.Println("SMTP_HOST not set, customer notifications go to the log")
		return services.NewLogNotifier()
	}

	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if port == 0 {
		port = 587
	}

	cfg := services.SMTPConfig{
		Host:       host,
		Port:       port,
		Username:   os.Getenv("SMTP_USERNAME"),
		Password:   os.Getenv("SMTP_PASSWORD"),
		From:       os.Getenv("SMTP_FROM"),
		FromName:   os.Getenv("SMTP_FROM_NAME"),
		UseSSL:     port == 465,
		AppName:    "Studio Nexora",
		AppBaseURL: os.Getenv("APP_BASE_URL"),
	}

	mail, err := services.NewSMTPMailService(cfg)
	if err != nil {
		log.Printf("Error initializing mail service: %v", err)
		return services.NewLogNotifier()
	}
	return services.NewMailNotifier(mail, cfg.AppBaseURL)
}
