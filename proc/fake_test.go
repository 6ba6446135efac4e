package proc

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/rolekeeper/sys"
	"github.com/samber/mo"
)

// --- In-memory directory ---

type mutation struct {
	Op     string
	UserID snowflake.ID
	RoleID snowflake.ID
	Reason string
}

type retraction struct {
	Emoji  string
	UserID snowflake.ID
}

type fakeMessage struct {
	channelID snowflake.ID
	// reactions keeps emoji order and reactor order.
	emojis    []string
	reactions map[string][]Reactor
}

type fakeDirectory struct {
	mu sync.Mutex

	guildID  snowflake.ID
	members  map[snowflake.ID]*Member
	roles    map[snowflake.ID]bool
	messages map[snowflake.ID]*fakeMessage
	guilds   []snowflake.ID

	mutations   []mutation
	retractions []retraction
	seeded      []string
	pageCalls   map[string]int
	msgFetches  int

	// failure injection
	failPage       map[string]int // emoji -> page index that fails
	failMembers    bool
	failMember     map[snowflake.ID]bool
	failMutation   map[snowflake.ID]bool // role ids whose mutations fail
	failMessage    bool
	failRoleLookup bool
	panicOnMessage snowflake.ID
}

func newFakeDirectory(guildID snowflake.ID) *fakeDirectory {
	return &fakeDirectory{
		guildID:      guildID,
		members:      map[snowflake.ID]*Member{},
		roles:        map[snowflake.ID]bool{},
		messages:     map[snowflake.ID]*fakeMessage{},
		guilds:       []snowflake.ID{guildID},
		pageCalls:    map[string]int{},
		failPage:     map[string]int{},
		failMember:   map[snowflake.ID]bool{},
		failMutation: map[snowflake.ID]bool{},
	}
}

func (f *fakeDirectory) addRole(ids ...snowflake.ID) {
	for _, id := range ids {
		f.roles[id] = true
	}
}

func (f *fakeDirectory) addMember(userID snowflake.ID, bot bool, roles ...snowflake.ID) {
	f.members[userID] = &Member{UserID: userID, Bot: bot, RoleIDs: append([]snowflake.ID(nil), roles...)}
}

func (f *fakeDirectory) addMessage(channelID, messageID snowflake.ID) *fakeMessage {
	m := &fakeMessage{channelID: channelID, reactions: map[string][]Reactor{}}
	f.messages[messageID] = m
	return m
}

func (f *fakeDirectory) react(messageID snowflake.ID, emoji string, userID snowflake.ID) {
	m := f.messages[messageID]
	if _, ok := m.reactions[emoji]; !ok {
		m.emojis = append(m.emojis, emoji)
	}
	bot := false
	if mem, ok := f.members[userID]; ok {
		bot = mem.Bot
	}
	m.reactions[emoji] = append(m.reactions[emoji], Reactor{UserID: userID, Bot: bot})
}

func (f *fakeDirectory) holds(userID, roleID snowflake.ID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[userID]
	return ok && m.HasRole(roleID)
}

func (f *fakeDirectory) heldPanelRoles(userID snowflake.ID, panelRoles []snowflake.ID) []snowflake.ID {
	var out []snowflake.ID
	for _, r := range panelRoles {
		if f.holds(userID, r) {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeDirectory) resetLog() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations = nil
	f.retractions = nil
}

func (f *fakeDirectory) log() []mutation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mutation(nil), f.mutations...)
}

func (f *fakeDirectory) FetchMessage(ctx context.Context, channelID, messageID snowflake.ID) (Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnMessage == messageID && messageID != 0 {
		panic("boom")
	}
	f.msgFetches++
	if f.failMessage {
		return Message{}, errors.New("gateway timeout")
	}
	m, ok := f.messages[messageID]
	if !ok || m.channelID != channelID {
		return Message{}, ErrNotFound
	}
	return Message{ID: messageID, ChannelID: channelID, GuildID: f.guildID, Emojis: append([]string(nil), m.emojis...)}, nil
}

func (f *fakeDirectory) FetchReactors(ctx context.Context, channelID, messageID snowflake.ID, emoji string, after snowflake.ID, limit int) ([]Reactor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := fmt.Sprintf("%s/%s", messageID, emoji)
	page := f.pageCalls[key]
	f.pageCalls[key]++

	if failAt, ok := f.failPage[emoji]; ok && failAt == page {
		return nil, errors.New("500 internal")
	}

	m, ok := f.messages[messageID]
	if !ok {
		return nil, ErrNotFound
	}
	users, ok := m.reactions[emoji]
	if !ok {
		return nil, ErrNotFound
	}

	sorted := append([]Reactor(nil), users...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UserID < sorted[j].UserID })

	var out []Reactor
	for _, u := range sorted {
		if u.UserID <= after {
			continue
		}
		out = append(out, u)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeDirectory) FetchMember(ctx context.Context, guildID, userID snowflake.ID) (Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMember[userID] {
		return Member{}, errors.New("timeout")
	}
	m, ok := f.members[userID]
	if !ok {
		return Member{}, ErrNotFound
	}
	return Member{UserID: m.UserID, Bot: m.Bot, RoleIDs: append([]snowflake.ID(nil), m.RoleIDs...)}, nil
}

func (f *fakeDirectory) FetchMembers(ctx context.Context, guildID snowflake.ID) ([]Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMembers {
		return nil, errors.New("missing privileged intent")
	}
	out := make([]Member, 0, len(f.members))
	for _, m := range f.members {
		out = append(out, Member{UserID: m.UserID, Bot: m.Bot, RoleIDs: append([]snowflake.ID(nil), m.RoleIDs...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (f *fakeDirectory) RoleExists(ctx context.Context, guildID, roleID snowflake.ID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRoleLookup {
		return false, errors.New("503 service unavailable")
	}
	return f.roles[roleID], nil
}

func (f *fakeDirectory) AddRole(ctx context.Context, guildID, userID, roleID snowflake.ID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMutation[roleID] {
		return errors.New("403 missing permissions")
	}
	m, ok := f.members[userID]
	if !ok {
		return ErrNotFound
	}
	f.mutations = append(f.mutations, mutation{"add", userID, roleID, reason})
	if !slices.Contains(m.RoleIDs, roleID) {
		m.RoleIDs = append(m.RoleIDs, roleID)
	}
	return nil
}

func (f *fakeDirectory) RemoveRole(ctx context.Context, guildID, userID, roleID snowflake.ID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMutation[roleID] {
		return errors.New("403 missing permissions")
	}
	m, ok := f.members[userID]
	if !ok {
		return ErrNotFound
	}
	f.mutations = append(f.mutations, mutation{"remove", userID, roleID, reason})
	m.RoleIDs = slices.DeleteFunc(m.RoleIDs, func(id snowflake.ID) bool { return id == roleID })
	return nil
}

func (f *fakeDirectory) AddReaction(ctx context.Context, channelID, messageID snowflake.ID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeded = append(f.seeded, emoji)
	return nil
}

func (f *fakeDirectory) RemoveReaction(ctx context.Context, channelID, messageID snowflake.ID, emoji string, userID snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[messageID]
	if !ok {
		return ErrNotFound
	}
	// the platform accepts removing an absent reaction, only real removals are logged
	before := len(m.reactions[emoji])
	m.reactions[emoji] = slices.DeleteFunc(m.reactions[emoji], func(r Reactor) bool { return r.UserID == userID })
	if len(m.reactions[emoji]) < before {
		f.retractions = append(f.retractions, retraction{emoji, userID})
	}
	return nil
}

func (f *fakeDirectory) ListGuilds(ctx context.Context) ([]snowflake.ID, error) {
	return f.guilds, nil
}

// --- In-memory store ---

type fakeStore struct {
	panels    []sys.Panel
	autoroles map[snowflake.ID]snowflake.ID
	fail      bool
}

func (s *fakeStore) GetPanel(ctx context.Context, kind sys.PanelKind, messageID snowflake.ID) (mo.Option[sys.Panel], error) {
	if s.fail {
		return mo.None[sys.Panel](), errors.New("database is locked")
	}
	for _, p := range s.panels {
		if p.Kind == kind && p.MessageID == messageID {
			return mo.Some(p), nil
		}
	}
	return mo.None[sys.Panel](), nil
}

func (s *fakeStore) ListPanels(ctx context.Context, guildID snowflake.ID, kind sys.PanelKind) ([]sys.Panel, error) {
	if s.fail {
		return nil, errors.New("database is locked")
	}
	var out []sys.Panel
	for _, p := range s.panels {
		if p.GuildID == guildID && p.Kind == kind {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) GetAutorole(ctx context.Context, guildID snowflake.ID) (mo.Option[snowflake.ID], error) {
	if s.fail {
		return mo.None[snowflake.ID](), errors.New("database is locked")
	}
	if id, ok := s.autoroles[guildID]; ok {
		return mo.Some(id), nil
	}
	return mo.None[snowflake.ID](), nil
}

// --- Fixtures ---

const (
	guild   snowflake.ID = 100000000000000001
	channel snowflake.ID = 200000000000000001
	panelID snowflake.ID = 300000000000000001

	red   snowflake.ID = 400000000000000001
	blue  snowflake.ID = 400000000000000002
	green snowflake.ID = 400000000000000003

	botUser snowflake.ID = 500000000000000000
	alice   snowflake.ID = 500000000000000001
	bob     snowflake.ID = 500000000000000002
	carol   snowflake.ID = 500000000000000003
)

func reactionPanel(messageID snowflake.ID, exclusive bool, bindings ...sys.RoleBinding) sys.Panel {
	return sys.Panel{
		Kind:          sys.PanelKindReaction,
		GuildID:       guild,
		ChannelID:     channel,
		MessageID:     messageID,
		Bindings:      bindings,
		Exclusive:     exclusive,
		SchemaVersion: sys.PanelSchemaVersion,
	}
}

func bind(emoji string, roleID snowflake.ID) sys.RoleBinding {
	return sys.RoleBinding{Emoji: emoji, RoleID: roleID}
}

func newTestService(store *fakeStore, dir Directory) *Service {
	return NewService(store, WithDirectory(dir), WithPacing(UnpacedPacing))
}
