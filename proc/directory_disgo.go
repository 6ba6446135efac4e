package proc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/rolekeeper/sys"
	"github.com/sony/gobreaker/v2"
)

const membersPageSize = 1000

// DisgoDirectory is the Directory backed by a live disgo client. Every REST
// call goes through one circuit breaker so an outage stops a sweep from
// hammering the API member by member.
type DisgoDirectory struct {
	client  *bot.Client
	breaker *gobreaker.CircuitBreaker[any]
}

func NewDisgoDirectory(client *bot.Client) *DisgoDirectory {
	return &DisgoDirectory{
		client:  client,
		breaker: newBreaker("discord-rest"),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Client errors are answers, not outages.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			code := statusOf(err)
			return code >= 400 && code < 500 && code != http.StatusTooManyRequests
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			sys.BreakerState.WithLabelValues(name).Set(float64(to))
			sys.LogWarn("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})
}

func statusOf(err error) int {
	var restErr *rest.Error
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode
	}
	return 0
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if statusOf(err) == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

func call[T any](d *DisgoDirectory, fn func() (T, error)) (T, error) {
	var zero T
	res, err := d.breaker.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		return zero, mapErr(err)
	}
	v, ok := res.(T)
	if !ok {
		return zero, nil
	}
	return v, nil
}

func exec(d *DisgoDirectory, fn func() error) error {
	_, err := call(d, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// --- Directory ---

func (d *DisgoDirectory) FetchMessage(ctx context.Context, channelID, messageID snowflake.ID) (Message, error) {
	msg, err := call(d, func() (*discord.Message, error) {
		return d.client.Rest.GetMessage(channelID, messageID, rest.WithCtx(ctx))
	})
	if err != nil {
		return Message{}, err
	}
	if msg == nil {
		return Message{}, ErrNotFound
	}

	out := Message{ID: msg.ID, ChannelID: msg.ChannelID}
	if msg.GuildID != nil {
		out.GuildID = *msg.GuildID
	}
	for _, r := range msg.Reactions {
		out.Emojis = append(out.Emojis, sys.ReactionEmojiKey(r.Emoji))
	}
	return out, nil
}

func (d *DisgoDirectory) FetchReactors(ctx context.Context, channelID, messageID snowflake.ID, emoji string, after snowflake.ID, limit int) ([]Reactor, error) {
	users, err := call(d, func() ([]discord.User, error) {
		return d.client.Rest.GetReactions(channelID, messageID, emoji, discord.MessageReactionTypeNormal, int(after), limit, rest.WithCtx(ctx))
	})
	if err != nil {
		return nil, err
	}
	out := make([]Reactor, 0, len(users))
	for _, u := range users {
		out = append(out, Reactor{UserID: u.ID, Bot: u.Bot})
	}
	return out, nil
}

func (d *DisgoDirectory) FetchMember(ctx context.Context, guildID, userID snowflake.ID) (Member, error) {
	m, err := call(d, func() (*discord.Member, error) {
		return d.client.Rest.GetMember(guildID, userID, rest.WithCtx(ctx))
	})
	if err != nil {
		return Member{}, err
	}
	if m == nil {
		return Member{}, ErrNotFound
	}
	return toMember(*m), nil
}

func (d *DisgoDirectory) FetchMembers(ctx context.Context, guildID snowflake.ID) ([]Member, error) {
	var out []Member
	var after snowflake.ID
	for {
		page, err := call(d, func() ([]discord.Member, error) {
			return d.client.Rest.GetMembers(guildID, membersPageSize, after, rest.WithCtx(ctx))
		})
		if err != nil {
			return nil, err
		}
		for _, m := range page {
			out = append(out, toMember(m))
		}
		if len(page) < membersPageSize {
			return out, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func toMember(m discord.Member) Member {
	return Member{
		UserID:  m.User.ID,
		Bot:     m.User.Bot,
		RoleIDs: append([]snowflake.ID(nil), m.RoleIDs...),
	}
}

func (d *DisgoDirectory) RoleExists(ctx context.Context, guildID, roleID snowflake.ID) (bool, error) {
	if _, ok := d.client.Caches.Role(guildID, roleID); ok {
		return true, nil
	}
	roles, err := call(d, func() ([]discord.Role, error) {
		return d.client.Rest.GetRoles(guildID, rest.WithCtx(ctx))
	})
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r.ID == roleID {
			return true, nil
		}
	}
	return false, nil
}

func (d *DisgoDirectory) AddRole(ctx context.Context, guildID, userID, roleID snowflake.ID, reason string) error {
	return exec(d, func() error {
		return d.client.Rest.AddMemberRole(guildID, userID, roleID, rest.WithReason(reason), rest.WithCtx(ctx))
	})
}

func (d *DisgoDirectory) RemoveRole(ctx context.Context, guildID, userID, roleID snowflake.ID, reason string) error {
	return exec(d, func() error {
		return d.client.Rest.RemoveMemberRole(guildID, userID, roleID, rest.WithReason(reason), rest.WithCtx(ctx))
	})
}

func (d *DisgoDirectory) AddReaction(ctx context.Context, channelID, messageID snowflake.ID, emoji string) error {
	return exec(d, func() error {
		return d.client.Rest.AddReaction(channelID, messageID, emoji, rest.WithCtx(ctx))
	})
}

func (d *DisgoDirectory) RemoveReaction(ctx context.Context, channelID, messageID snowflake.ID, emoji string, userID snowflake.ID) error {
	return exec(d, func() error {
		return d.client.Rest.RemoveUserReaction(channelID, messageID, emoji, userID, rest.WithCtx(ctx))
	})
}

func (d *DisgoDirectory) ListGuilds(ctx context.Context) ([]snowflake.ID, error) {
	var out []snowflake.ID
	var after snowflake.ID
	for {
		page, err := call(d, func() ([]discord.OAuth2Guild, error) {
			return d.client.Rest.GetCurrentUserGuilds("", 0, after, 200, false, rest.WithCtx(ctx))
		})
		if err != nil {
			return nil, err
		}
		for _, g := range page {
			out = append(out, g.ID)
		}
		if len(page) < 200 {
			return out, nil
		}
		after = page[len(page)-1].ID
	}
}

var _ Directory = (*DisgoDirectory)(nil)
