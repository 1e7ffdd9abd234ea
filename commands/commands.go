package commands

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/TeamTenuki/livewatch/db"
	"github.com/TeamTenuki/livewatch/messenger"
	"github.com/TeamTenuki/livewatch/monitor"
	"github.com/TeamTenuki/livewatch/provider"
	"github.com/TeamTenuki/livewatch/stream"
)

type Command = func(c context.Context, sourceID string, args []string, m messenger.Messenger) error

type StreamingState interface {
	Live() []stream.Snapshot
}

type Handler struct {
	commands map[string]Command
	state    StreamingState
	set      *monitor.Set
	changed  func()
}

// NewHandler returns a handler of chat commands. changed is called after the
// set of monitored channels is modified, it may be nil.
func NewHandler(state StreamingState, set *monitor.Set, changed func()) *Handler {
	if changed == nil {
		changed = func() {}
	}

	h := &Handler{state: state, set: set, changed: changed}

	h.commands = map[string]Command{
		"list":     h.listCommand,
		"channels": h.channelsCommand,
		"add":      h.addCommand,
		"remove":   h.removeCommand,
		"mute":     h.muteCommand,
		"unmute":   h.unmuteCommand,
		"top":      h.topCommand,
		"games":    h.gamesCommand,
		"vods":     h.vodsCommand,
		"spam":     h.spamCommand,
		"forget":   h.forgetCommand,
		"help":     h.helpCommand,
	}

	return h
}

var commandRegex = regexp.MustCompile(`^<@!?\d+>\s+(\w+)(.*)$`)

func (h *Handler) Handle(c context.Context, sourceID, message string, m messenger.Messenger) error {
	groups := commandRegex.FindStringSubmatch(strings.TrimSpace(message))
	if groups == nil {
		return nil
	}

	command := strings.ToLower(groups[1])
	args := strings.Fields(groups[2])

	if handler, exists := h.commands[command]; exists {
		return handler(c, sourceID, args, m)
	}

	return m.MessageText(c, sourceID, fmt.Sprintf("Unknown command `%s`, try `help`", command))
}

func (h *Handler) listCommand(c context.Context, sourceID string, args []string, m messenger.Messenger) error {
	streams := h.state.Live()

	if len(streams) == 0 {
		return m.MessageText(c, sourceID, "Nobody is currently streaming :pensive:")
	}

	return m.MessageStreamList(c, sourceID, "Currently Live", streams)
}

func (h *Handler) channelsCommand(c context.Context, sourceID string, args []string, m messenger.Messenger) error {
	ss := h.set.Snapshots()
	if len(ss) == 0 {
		return m.MessageText(c, sourceID, "No channels are monitored, add one with `add`")
	}

	var b strings.Builder
	b.WriteString("```\n")
	for _, s := range ss {
		fmt.Fprintf(&b, "%-30s %-8s", s.Identifier, s.State)
		if s.DontNotify {
			b.WriteString(" muted")
		}
		b.WriteString("\n")
	}
	b.WriteString("```")

	return m.MessageText(c, sourceID, b.String())
}

func (h *Handler) addCommand(c context.Context, sourceID string, args []string, m messenger.Messenger) error {
	id, err := h.identify(args)
	if err != nil {
		return m.MessageText(c, sourceID, "Command `add` "+err.Error())
	}

	if _, err := h.set.Add(c, id); err != nil {
		if errors.Is(err, monitor.ErrAlreadyMonitored) {
			return m.MessageText(c, sourceID, fmt.Sprintf("Channel %s is already monitored", id))
		}

		return m.MessageText(c, sourceID, fmt.Sprintf("Failed to add channel %s :pensive:", id))
	}

	h.changed()

	return m.MessageText(c, sourceID, fmt.Sprintf("Successfully added channel %s", id))
}

func (h *Handler) removeCommand(c context.Context, sourceID string, args []string, m messenger.Messenger) error {
	id, err := h.identify(args)
	if err != nil {
		return m.MessageText(c, sourceID, "Command `remove` "+err.Error())
	}

	if err := h.set.Remove(c, id); err != nil {
		if errors.Is(err, monitor.ErrNotMonitored) {
			return m.MessageText(c, sourceID, fmt.Sprintf("Channel %s is not monitored", id))
		}

		return m.MessageText(c, sourceID, fmt.Sprintf("Failed to remove channel %s :pensive:", id))
	}

	h.changed()

	return m.MessageText(c, sourceID, fmt.Sprintf("Successfully removed channel %s", id))
}

func (h *Handler) muteCommand(c context.Context, sourceID string, args []string, m messenger.Messenger) error {
	id, err := h.identify(args)
	if err != nil {
		return m.MessageText(c, sourceID, "Command `mute` "+err.Error())
	}

	if err := h.set.Exclude(c, id); err != nil {
		return m.MessageText(c, sourceID, fmt.Sprintf("Failed to mute channel %s :pensive:", id))
	}

	return m.MessageText(c, sourceID, fmt.Sprintf("Channel %s won't be reported anymore", id))
}

func (h *Handler) unmuteCommand(c context.Context, sourceID string, args []string, m messenger.Messenger) error {
	id, err := h.identify(args)
	if err != nil {
		return m.MessageText(c, sourceID, "Command `unmute` "+err.Error())
	}

	if err := h.set.Include(c, id); err != nil {
		return m.MessageText(c, sourceID, fmt.Sprintf("Failed to unmute channel %s :pensive:", id))
	}

	return m.MessageText(c, sourceID, fmt.Sprintf("Channel %s will be reported again", id))
}

func (h *Handler) topCommand(c context.Context, sourceID string, args []string, m messenger.Messenger) error {
	if len(args) == 0 {
		return m.MessageText(c, sourceID, "Command `top` requires a provider and, optionally, a game")
	}

	p, err := h.set.Providers().Get(args[0])
	if err != nil {
		return m.MessageText(c, sourceID, unknownProvider(h.set.Providers(), args[0]))
	}

	game := strings.Join(args[1:], " ")
	ss, err := provider.TopStreams(c, p, stream.TopStreamQuery{Game: game, Take: 10})
	if err != nil {
		return m.MessageText(c, sourceID, describe(err))
	}

	if len(ss) == 0 {
		return m.MessageText(c, sourceID, "Nobody is streaming that :pensive:")
	}

	title := "Top Streams"
	if game != "" {
		title = "Top " + game + " Streams"
	}

	return m.MessageStreamList(c, sourceID, title, ss)
}

func (h *Handler) gamesCommand(c context.Context, sourceID string, args []string, m messenger.Messenger) error {
	if len(args) == 0 {
		return m.MessageText(c, sourceID, "Command `games` requires a provider and, optionally, a filter")
	}

	p, err := h.set.Providers().Get(args[0])
	if err != nil {
		return m.MessageText(c, sourceID, unknownProvider(h.set.Providers(), args[0]))
	}

	games, err := provider.KnownGames(c, p, strings.Join(args[1:], " "))
	if err != nil {
		return m.MessageText(c, sourceID, describe(err))
	}

	if len(games) == 0 {
		return m.MessageText(c, sourceID, "No games found")
	}

	names := make([]string, len(games))
	for i, g := range games {
		names[i] = g.Name
	}

	return m.MessageText(c, sourceID, strings.Join(names, ", "))
}

func (h *Handler) vodsCommand(c context.Context, sourceID string, args []string, m messenger.Messenger) error {
	id, err := h.identify(args)
	if err != nil {
		return m.MessageText(c, sourceID, "Command `vods` "+err.Error()+" and, optionally, a type")
	}

	p, _ := h.set.Providers().Get(id.Provider)

	q := stream.VodQuery{ChannelID: id.ChannelID, Take: 5}
	if len(args) > 2 {
		q.Type = args[2]
	}

	vods, err := provider.Vods(c, p, q)
	if err != nil {
		return m.MessageText(c, sourceID, describe(err))
	}

	if len(vods) == 0 {
		return m.MessageText(c, sourceID, fmt.Sprintf("Channel %s has no videos", id))
	}

	var b strings.Builder
	for _, v := range vods {
		fmt.Fprintf(&b, "%s (%s, %s) <%s>\n", v.Title, v.RecordedAt.Format("2006-01-02"), v.Length.Round(time.Minute), v.URL)
	}

	return m.MessageText(c, sourceID, b.String())
}

func (h *Handler) spamCommand(c context.Context, sourceID string, args []string, m messenger.Messenger) error {
	if len(args) == 0 {
		return m.MessageText(c, sourceID, "Command `spam` requires an argument - channel where it will spam")
	}

	roomID, err := parseRoomID(args[0])
	if err != nil {
		return m.MessageText(c, sourceID, err.Error())
	}

	if err := db.RoomAdd(c, roomID); err != nil {
		if errors.Is(err, db.ErrRoomExists) {
			return m.MessageText(c, sourceID,
				fmt.Sprintf("Failed to add channel <#%s>: it is already added.", roomID))
		}
		return m.MessageText(c, sourceID, fmt.Sprintf("Failed to add room <#%s> :pensive:", roomID))
	}

	return m.MessageText(c, sourceID, fmt.Sprintf("Successfully added room <#%s>", roomID))
}

func (h *Handler) forgetCommand(c context.Context, sourceID string, args []string, m messenger.Messenger) error {
	if len(args) == 0 {
		return m.MessageText(c, sourceID, "Command `forget` requires an argument - channel which to exclude from spamming")
	}

	roomID, err := parseRoomID(args[0])
	if err != nil {
		return m.MessageText(c, sourceID, err.Error())
	}

	if err := db.RoomRemove(c, roomID); err != nil {
		return m.MessageText(c, sourceID, fmt.Sprintf("Failed to remove room <#%s> :pensive:", roomID))
	}

	return m.MessageText(c, sourceID, fmt.Sprintf("Successfully removed room <#%s>", roomID))
}

const usage = "```\nUSAGE\n" +
	"\tadd <provider> <channel> - Monitor a channel\n" +
	"\tremove <provider> <channel> - Stop monitoring a channel\n" +
	"\tmute <provider> <channel> - Don't report a channel going live\n" +
	"\tunmute <provider> <channel> - Report a channel going live again\n" +
	"\tchannels - List monitored channels\n" +
	"\tlist - List currently live streamers\n" +
	"\ttop <provider> [game] - List top streams\n" +
	"\tgames <provider> [filter] - List known games\n" +
	"\tvods <provider> <channel> [type] - List recent videos\n" +
	"\tspam - Add channel to list of spammable channels\n" +
	"\tforget - Remove channel from list of spammable channels\n" +
	"\thelp - Display this message```"

func (h *Handler) helpCommand(c context.Context, sourceID string, args []string, m messenger.Messenger) error {
	return m.MessageText(c, sourceID, usage)
}

func (h *Handler) identify(args []string) (stream.Identifier, error) {
	if len(args) < 2 {
		return stream.Identifier{}, errors.New("requires a provider and a channel")
	}

	id, err := h.set.Identify(strings.ToLower(args[0]), args[1])
	if err != nil {
		return stream.Identifier{}, errors.New("requires a provider, one of " + strings.Join(h.set.Providers().Names(), ", "))
	}

	return id, nil
}

func unknownProvider(providers *provider.Registry, name string) string {
	return fmt.Sprintf("Unknown provider %s, try one of %s", strconv.Quote(name), strings.Join(providers.Names(), ", "))
}

// describe turns a provider error into a reply.
func describe(err error) string {
	var ue *provider.UnsupportedError
	if errors.As(err, &ue) {
		return fmt.Sprintf("Provider %s doesn't support %s", ue.Provider, ue.Feature)
	}

	return "Failed to query the provider :pensive:"
}

func parseRoomID(s string) (string, error) {
	var roomRegex = regexp.MustCompile(`<#(\d+)>`)
	var groups = roomRegex.FindAllStringSubmatch(s, -1)
	if groups == nil {
		return "", errors.New("Improper room format")
	}

	var roomID = groups[0][1]

	return roomID, nil
}
