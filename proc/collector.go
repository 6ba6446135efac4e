package proc

import (
	"context"
	"errors"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/rolekeeper/sys"
)

// Collector builds a Snapshot from the reactions on a panel message.
type Collector struct {
	dir  Directory
	pace Pacing
}

func NewCollector(dir Directory, pace Pacing) *Collector {
	return &Collector{dir: dir, pace: pace}
}

// Collect pages through every bound emoji. A failing page ends that emoji
// only; whatever was gathered so far is kept.
func (c *Collector) Collect(ctx context.Context, msg Message, bindings []sys.RoleBinding) *Snapshot {
	roleIDs := make([]snowflake.ID, 0, len(bindings))
	for _, b := range bindings {
		roleIDs = append(roleIDs, b.RoleID)
	}
	snap := NewSnapshot(roleIDs)

	for i, b := range bindings {
		if b.Emoji == "" {
			continue
		}
		if i > 0 {
			if err := c.pace.Emoji.Wait(ctx); err != nil {
				return snap
			}
		}
		if err := c.collectEmoji(ctx, msg, b, snap); err != nil {
			return snap
		}
	}
	return snap
}

// collectEmoji only returns an error when ctx is done.
func (c *Collector) collectEmoji(ctx context.Context, msg Message, b sys.RoleBinding, snap *Snapshot) error {
	// Emojis missing from the fetched message still get one direct lookup;
	// a not-found answer there just means nobody reacted.
	cached := msg.HasEmoji(b.Emoji)

	var after snowflake.ID
	collected := 0
	for page := 0; ; page++ {
		if page > 0 {
			if err := c.pace.Page.Wait(ctx); err != nil {
				return err
			}
		}

		users, err := c.dir.FetchReactors(ctx, msg.ChannelID, msg.ID, b.Emoji, after, ReactorPageSize)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, ErrNotFound) && !cached && page == 0 {
				return nil
			}
			sys.CollectorPageFailures.Inc()
			sys.LogWarn(sys.MsgReactionPageFail, b.Emoji, msg.ID, collected, err)
			return nil
		}

		for _, u := range users {
			if u.Bot {
				continue
			}
			snap.Add(b.RoleID, u.UserID)
			collected++
			sys.ReactorsCollected.Inc()
		}

		if len(users) < ReactorPageSize {
			return nil
		}
		after = users[len(users)-1].UserID
	}
}
