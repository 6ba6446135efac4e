package sys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/goccy/go-json"
	"github.com/samber/mo"
)

// --- Guild Configs (autorole) ---

func (s *Store) SetAutorole(ctx context.Context, guildID, roleID snowflake.ID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_configs (guild_id, autorole_id) VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET autorole_id = excluded.autorole_id, updated_at = CURRENT_TIMESTAMP
	`, guildID.String(), roleID.String())
	return err
}

func (s *Store) ClearAutorole(ctx context.Context, guildID snowflake.ID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE guild_configs SET autorole_id = NULL, updated_at = CURRENT_TIMESTAMP WHERE guild_id = ?
	`, guildID.String())
	return err
}

func (s *Store) GetAutorole(ctx context.Context, guildID snowflake.ID) (mo.Option[snowflake.ID], error) {
	var roleIDStr sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT autorole_id FROM guild_configs WHERE guild_id = ?", guildID.String()).Scan(&roleIDStr)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && (!roleIDStr.Valid || roleIDStr.String == "")) {
		return mo.None[snowflake.ID](), nil
	}
	if err != nil {
		return mo.None[snowflake.ID](), err
	}
	roleID, err := snowflake.Parse(roleIDStr.String)
	if err != nil {
		return mo.None[snowflake.ID](), fmt.Errorf("failed to parse autorole ID '%s': %w", roleIDStr.String, err)
	}
	return mo.Some(roleID), nil
}

// --- Panels ---

// SavePanel inserts or replaces the definition keyed by message id.
// Re-saving keeps the original position in guild order.
func (s *Store) SavePanel(ctx context.Context, p *Panel) error {
	if len(p.Bindings) == 0 {
		return fmt.Errorf("panel %s has no roles", p.MessageID)
	}
	bindings, err := json.Marshal(p.Bindings)
	if err != nil {
		return fmt.Errorf("failed to encode bindings: %w", err)
	}

	var channelID any
	if p.ChannelID != 0 {
		channelID = p.ChannelID.String()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO panels (message_id, kind, guild_id, channel_id, bindings, exclusive, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			kind = excluded.kind,
			guild_id = excluded.guild_id,
			channel_id = excluded.channel_id,
			bindings = excluded.bindings,
			exclusive = excluded.exclusive,
			schema_version = excluded.schema_version
	`, p.MessageID.String(), string(p.Kind), p.GuildID.String(), channelID, string(bindings),
		boolToInt(p.Exclusive), PanelSchemaVersion)
	return err
}

func (s *Store) GetPanel(ctx context.Context, kind PanelKind, messageID snowflake.ID) (mo.Option[Panel], error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT message_id, kind, guild_id, channel_id, bindings, exclusive, schema_version
		FROM panels WHERE message_id = ? AND kind = ?
	`, messageID.String(), string(kind))

	p, err := scanPanel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return mo.None[Panel](), nil
	}
	if err != nil {
		return mo.None[Panel](), err
	}
	return mo.Some(p), nil
}

// ListPanels returns a guild's panels of one kind in creation order.
func (s *Store) ListPanels(ctx context.Context, guildID snowflake.ID, kind PanelKind) ([]Panel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, kind, guild_id, channel_id, bindings, exclusive, schema_version
		FROM panels WHERE guild_id = ? AND kind = ?
		ORDER BY created_at ASC, rowid ASC
	`, guildID.String(), string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var panels []Panel
	for rows.Next() {
		p, err := scanPanel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan panel: %w", err)
		}
		panels = append(panels, p)
	}
	return panels, rows.Err()
}

func (s *Store) CountPanels(ctx context.Context, kind PanelKind) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM panels WHERE kind = ?", string(kind)).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPanel(r rowScanner) (Panel, error) {
	var p Panel
	var msgStr, kind, guildStr, bindings string
	var channelStr sql.NullString
	var exclusive int

	if err := r.Scan(&msgStr, &kind, &guildStr, &channelStr, &bindings, &exclusive, &p.SchemaVersion); err != nil {
		return p, err
	}

	var err error
	if p.MessageID, err = snowflake.Parse(msgStr); err != nil {
		return p, fmt.Errorf("failed to parse message ID '%s': %w", msgStr, err)
	}
	if p.GuildID, err = snowflake.Parse(guildStr); err != nil {
		return p, fmt.Errorf("failed to parse guild ID '%s' for panel %s: %w", guildStr, msgStr, err)
	}
	if channelStr.Valid && channelStr.String != "" {
		if p.ChannelID, err = snowflake.Parse(channelStr.String); err != nil {
			return p, fmt.Errorf("failed to parse channel ID '%s' for panel %s: %w", channelStr.String, msgStr, err)
		}
	}
	if err := json.Unmarshal([]byte(bindings), &p.Bindings); err != nil {
		return p, fmt.Errorf("failed to decode bindings for panel %s: %w", msgStr, err)
	}

	p.Kind = PanelKind(kind)
	p.Exclusive = exclusive == 1
	return p, nil
}

// --- Schema upgrades ---

// upgradePanels rewrites v1 rows, which hold a legacy mapping in the
// bindings column, into ordered RoleBinding lists.
func (s *Store) upgradePanels(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, kind, bindings FROM panels WHERE schema_version < ?
	`, PanelSchemaVersion)
	if err != nil {
		return 0, err
	}

	type pending struct {
		messageID string
		bindings  []RoleBinding
	}
	var todo []pending
	for rows.Next() {
		var msgID, kind, raw string
		if err := rows.Scan(&msgID, &kind, &raw); err != nil {
			rows.Close()
			return 0, err
		}
		bindings, err := decodeLegacyBindings(PanelKind(kind), []byte(raw))
		if err != nil {
			rows.Close()
			return 0, fmt.Errorf("panel %s: %w", msgID, err)
		}
		todo = append(todo, pending{msgID, bindings})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	if len(todo) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, t := range todo {
		encoded, err := json.Marshal(t.bindings)
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE panels SET bindings = ?, schema_version = ? WHERE message_id = ?
		`, string(encoded), PanelSchemaVersion, t.messageID); err != nil {
			return 0, err
		}
	}

	return len(todo), tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
