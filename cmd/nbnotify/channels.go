package main

import (
	"fmt"

	"github.com/btouchard/nbnotify/internal/channel"
	"github.com/btouchard/nbnotify/internal/config"
	"github.com/btouchard/nbnotify/internal/notify"
)

// buildChannels creates the chat and mail channels from cfg. Unconfigured
// channels come back as NopChannels.
func buildChannels(cfg *config.Config) (chat, mail notify.Channel, err error) {
	chat = notify.NopChannel{Label: "chat"}
	mail = notify.NopChannel{Label: "mail"}

	if cfg.Chat.Configured() {
		var client channel.ChatClient
		switch cfg.Chat.Provider {
		case "telegram":
			tc, err := channel.NewTelegramClient(cfg.Chat.Token)
			if err != nil {
				return nil, nil, err
			}
			client = tc
		default:
			client = channel.NewSlackClient(cfg.Chat.Token)
		}
		chat = channel.NewChat(client, cfg.Chat.Provider, cfg.Chat.UserID, cfg.Chat.ChannelName)
	}

	if cfg.Notify.Email != "" {
		transport, err := channel.NewSMTPTransport(channel.SMTPConfig{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			Username:   cfg.SMTP.Username,
			Password:   cfg.SMTP.Password,
			Encryption: cfg.SMTP.Encryption,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("mail channel: %w", err)
		}
		mail = channel.NewMail(transport, cfg.Notify.Email)
	}

	return chat, mail, nil
}
