package sys

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/disgoorg/snowflake/v2"
	"github.com/goccy/go-json"
)

const legacyImportKey = "legacy_data_imported"

// legacyData is the flat data.json layout written by the first release.
type legacyData struct {
	Guilds map[string]legacyGuild `json:"guilds"`
}

type legacyGuild struct {
	Autorole    *string                    `json:"autorole"`
	Panels      map[string]json.RawMessage `json:"panels"`
	ReactPanels map[string]json.RawMessage `json:"reactpanels"`
}

type LegacyImportResult struct {
	Guilds         int
	ButtonPanels   int
	ReactionPanels int
}

// ImportLegacyData copies a data.json file into the store once. A missing file
// is not an error. Panels are written as v1 rows and upgraded in place.
func (s *Store) ImportLegacyData(ctx context.Context, path string) (LegacyImportResult, error) {
	var res LegacyImportResult

	if done, _ := s.GetBotConfig(ctx, legacyImportKey); done != "" {
		LogDatabase(MsgLegacySkipped, path)
		return res, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf(MsgLegacyReadFail, path, err)
	}

	var data legacyData
	if err := json.Unmarshal(raw, &data); err != nil {
		return res, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer tx.Rollback()

	for gid, g := range data.Guilds {
		guildID, err := snowflake.Parse(gid)
		if err != nil {
			LogWarn(MsgLegacyBadEntry, "guild", gid, gid, err)
			continue
		}
		res.Guilds++

		if g.Autorole != nil && *g.Autorole != "" {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO guild_configs (guild_id, autorole_id) VALUES (?, ?)
				ON CONFLICT(guild_id) DO UPDATE SET autorole_id = excluded.autorole_id
			`, guildID.String(), *g.Autorole); err != nil {
				return res, err
			}
		}

		for msgID, entry := range g.Panels {
			mapping, exclusive, _, err := splitLegacyEntry(PanelKindButton, entry)
			if err != nil {
				LogWarn(MsgLegacyBadEntry, "button", msgID, gid, err)
				continue
			}
			if err := insertLegacyPanel(ctx, tx, PanelKindButton, guildID, msgID, "", mapping, exclusive); err != nil {
				return res, err
			}
			res.ButtonPanels++
		}

		for msgID, entry := range g.ReactPanels {
			mapping, exclusive, channelID, err := splitLegacyEntry(PanelKindReaction, entry)
			if err != nil {
				LogWarn(MsgLegacyBadEntry, "reaction", msgID, gid, err)
				continue
			}
			if err := insertLegacyPanel(ctx, tx, PanelKindReaction, guildID, msgID, channelID, mapping, exclusive); err != nil {
				return res, err
			}
			res.ReactionPanels++
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bot_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, legacyImportKey, path); err != nil {
		return res, err
	}

	if err := tx.Commit(); err != nil {
		return res, err
	}

	if _, err := s.upgradePanels(ctx); err != nil {
		return res, fmt.Errorf("failed to upgrade imported panels: %w", err)
	}

	LogDatabase(MsgLegacyImported, path, res.Guilds, res.ButtonPanels, res.ReactionPanels)
	return res, nil
}

func insertLegacyPanel(ctx context.Context, tx *sql.Tx, kind PanelKind, guildID snowflake.ID, msgID, channelID string, mapping json.RawMessage, exclusive bool) error {
	messageID, err := snowflake.Parse(msgID)
	if err != nil {
		LogWarn(MsgLegacyBadEntry, string(kind), msgID, guildID.String(), err)
		return nil
	}

	var channel any
	if channelID != "" {
		if _, err := snowflake.Parse(channelID); err == nil {
			channel = channelID
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO panels (message_id, kind, guild_id, channel_id, bindings, exclusive, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(message_id) DO NOTHING
	`, messageID.String(), string(kind), guildID.String(), channel, string(mapping), boolToInt(exclusive))
	return err
}

// splitLegacyEntry accepts every historical shape:
//
//	button:   ["roleId", ...] or {"roles": [...], "exclusive": bool}
//	reaction: {"emoji": "roleId", ...} or {"mapping": {...}, "exclusive": bool, "channelId": "..."}
func splitLegacyEntry(kind PanelKind, raw json.RawMessage) (json.RawMessage, bool, string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false, "", errors.New("empty entry")
	}

	switch kind {
	case PanelKindButton:
		if trimmed[0] == '[' {
			return trimmed, false, "", nil
		}
		var entry struct {
			Roles     json.RawMessage `json:"roles"`
			Exclusive bool            `json:"exclusive"`
		}
		if err := json.Unmarshal(trimmed, &entry); err != nil {
			return nil, false, "", err
		}
		if len(entry.Roles) == 0 {
			return nil, false, "", errors.New("no roles")
		}
		return entry.Roles, entry.Exclusive, "", nil

	default:
		var entry struct {
			Mapping   json.RawMessage `json:"mapping"`
			Exclusive bool            `json:"exclusive"`
			ChannelID string          `json:"channelId"`
		}
		if err := json.Unmarshal(trimmed, &entry); err != nil {
			return nil, false, "", err
		}
		if len(entry.Mapping) == 0 {
			// the oldest layout is the bare mapping itself
			return trimmed, false, "", nil
		}
		return entry.Mapping, entry.Exclusive, entry.ChannelID, nil
	}
}

// decodeLegacyBindings turns a v1 mapping into ordered bindings. Object key
// order is the order moderators entered the pairs, so it is read token by token.
func decodeLegacyBindings(kind PanelKind, raw []byte) ([]RoleBinding, error) {
	var bindings []RoleBinding
	seen := make(map[string]struct{})

	add := func(emoji, roleStr string) error {
		roleID, err := snowflake.Parse(roleStr)
		if err != nil {
			return fmt.Errorf("bad role id %q: %w", roleStr, err)
		}
		key := emoji + "|" + roleID.String()
		if _, dup := seen[key]; dup {
			return nil
		}
		seen[key] = struct{}{}
		bindings = append(bindings, RoleBinding{Emoji: emoji, RoleID: roleID})
		return nil
	}

	if kind == PanelKindButton {
		var ids []string
		if err := json.Unmarshal(raw, &ids); err != nil {
			return nil, err
		}
		for _, id := range ids {
			if err := add("", id); err != nil {
				return nil, err
			}
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(raw))
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return nil, fmt.Errorf("expected object, got %v", tok)
		}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)
			var roleStr string
			if err := dec.Decode(&roleStr); err != nil {
				return nil, err
			}
			if err := add(NormalizeEmoji(key), roleStr); err != nil {
				return nil, err
			}
		}
	}

	if len(bindings) == 0 {
		return nil, errors.New("no roles")
	}
	return bindings, nil
}
