package discord

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/TeamTenuki/livewatch/messenger"
	"github.com/TeamTenuki/livewatch/provider"
	"github.com/TeamTenuki/livewatch/stream"
)

// Discord caps the number of fields of a single embed.
const maxEmbedFields = 25

var providerNames = map[string]string{
	"twitch":  "Twitch",
	"youtube": "YouTube",
}

var providerIcons = map[string]string{
	"twitch":  "https://assets.help.twitch.tv/Glitch_Purple_RGB.png",
	"youtube": "https://www.youtube.com/s/desktop/favicon_144x144.png",
}

var providerColors = map[string]int{
	"twitch":  0x9146ff,
	"youtube": 0xff0000,
}

type Messenger struct {
	s         *discordgo.Session
	providers *provider.Registry
}

// NewMessenger returns a messenger linking streams to the pages of their providers.
func NewMessenger(s *discordgo.Session, providers *provider.Registry) messenger.Messenger {
	return &Messenger{
		s:         s,
		providers: providers,
	}
}

func (m *Messenger) MessageStream(c context.Context, roomID string, s *stream.Snapshot) error {
	_, err := m.s.ChannelMessageSendEmbed(roomID, m.streamEmbed(s))

	return err
}

func (m *Messenger) streamEmbed(s *stream.Snapshot) *discordgo.MessageEmbed {
	title := fmt.Sprintf("%s Went Live!", escape(s.DisplayName))
	if !strings.EqualFold(s.Identifier.ChannelID, s.DisplayName) {
		title = fmt.Sprintf("%s (%s) Went Live!", escape(s.DisplayName), escape(s.Identifier.ChannelID))
	}

	e := &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("[%s](%s)", s.Description, m.streamURL(s)),
		Color:       colorOf(s.Identifier.Provider),
		Author: &discordgo.MessageEmbedAuthor{
			Name:    nameOf(s.Identifier.Provider),
			URL:     m.channelURL(s),
			IconURL: providerIcons[s.Identifier.Provider],
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Live since",
		},
	}

	if s.ThumbnailURL != "" {
		e.Image = &discordgo.MessageEmbedImage{
			URL:    fmt.Sprintf("%s?cache_invalidation_token=%d", s.ThumbnailURL, rand.Int()),
			Width:  1280,
			Height: 720,
		}
	}

	if s.Game != "" {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Game", Value: s.Game, Inline: true})
	}
	e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
		Name:   "Viewers",
		Value:  fmt.Sprint(s.Viewers),
		Inline: true,
	})

	if !s.StartTime.IsZero() {
		e.Timestamp = s.StartTime.Format(time.RFC3339)
	}

	return e
}

func (m *Messenger) MessageStreamList(c context.Context, roomID, title string, ss []stream.Snapshot) error {
	_, err := m.s.ChannelMessageSendEmbed(roomID, m.listEmbed(title, ss))

	return err
}

func (m *Messenger) listEmbed(title string, ss []stream.Snapshot) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, min(len(ss), maxEmbedFields))
	for i := range ss {
		if len(fields) == maxEmbedFields {
			break
		}

		s := &ss[i]
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s (%s, %d viewers)", s.DisplayName, s.Identifier.Provider, s.Viewers),
			Value: fmt.Sprintf("[%s](%s)", orDash(s.Description), m.streamURL(s)),
		})
	}

	return &discordgo.MessageEmbed{
		Title:  title,
		Fields: fields,
	}
}

func (m *Messenger) MessageText(c context.Context, roomID, text string) error {
	_, err := m.s.ChannelMessageSend(roomID, text)

	return err
}

func (m *Messenger) streamURL(s *stream.Snapshot) string {
	p, err := m.providers.Get(s.Identifier.Provider)
	if err != nil {
		return ""
	}

	return provider.WatchURL(p, s)
}

func (m *Messenger) channelURL(s *stream.Snapshot) string {
	p, err := m.providers.Get(s.Identifier.Provider)
	if err != nil {
		return ""
	}

	return p.StreamURL(s.Identifier.ChannelID)
}

func nameOf(provider string) string {
	if n, ok := providerNames[provider]; ok {
		return n
	}

	return provider
}

func colorOf(provider string) int {
	if c, ok := providerColors[provider]; ok {
		return c
	}

	return 0x00aa00
}

func escape(s string) string {
	return strings.ReplaceAll(s, "_", "\\_")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
