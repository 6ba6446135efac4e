package sys

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// --- Globals & Styles ---

var (
	// Level colors
	infoColor  = color.New()
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
	fatalColor = color.New(color.FgRed, color.Bold)
	debugColor = color.New(color.FgHiBlack)

	// Component colors
	databaseColor = color.New()
	reactionColor = color.New(color.FgMagenta)
	sweepColor    = color.New(color.FgMagenta)
	buttonColor   = color.New(color.FgMagenta)
	autoroleColor = color.New(color.FgMagenta)
	loaderColor   = color.New(color.FgCyan)
	metricsColor  = color.New(color.FgHiBlack)
	statusColor   = color.New(color.FgBlue)

	DefaultTimeFormat = "15:04:05"
	IsSilent          = false
	LogToFile         = false
	Logger            *slog.Logger

	logFile *os.File
	logMu   sync.Mutex
)

// --- Initialization ---

func init() {
	InitLogger(false, false)
}

// InitLogger initializes the global structured logger
func InitLogger(silent bool, saveToFile bool) {
	logMu.Lock()
	defer logMu.Unlock()

	IsSilent = silent
	LogToFile = saveToFile
	level := slog.LevelInfo
	if strings.ToLower(os.Getenv("DEBUG")) == "true" {
		level = slog.LevelDebug
	}

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	var writer io.Writer = os.Stdout
	var err error

	if LogToFile {
		exePath, exeErr := os.Executable()
		logName := GetProjectName() + ".log"
		if exeErr == nil {
			logName = filepath.Base(exePath) + ".log"
		}

		logFile, err = os.OpenFile(logName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", logName, err)
		} else {
			writer = io.MultiWriter(os.Stdout, NewStripANSIWriter(logFile))
		}
	}

	handler := NewBotLogHandler(writer, &BotLogHandlerOptions{
		Silent: IsSilent,
		Level:  level,
	})
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

func SetSilentMode(silent bool) {
	InitLogger(silent, LogToFile)
}

// --- Public Logging API ---

func LogInfo(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...))
}

func LogWarn(format string, v ...any) {
	slog.Warn(fmt.Sprintf(format, v...))
}

func LogError(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...))
}

// LogFatal logs and panics so deferred cleanup in main still runs.
func LogFatal(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	slog.Log(context.Background(), slog.LevelError+4, msg)
	panic(msg)
}

func LogDebug(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...))
}

// Component Loggers

func LogDatabase(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "database"))
}

func LogReaction(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "reaction"))
}

func LogSweep(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "sweep"))
}

func LogButton(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "button"))
}

func LogAutorole(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "autorole"))
}

func LogLoader(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "loader"))
}

func LogMetrics(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "metrics"))
}

func LogStatusRotator(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "status"))
}

// --- Log Handler Implementation ---

type BotLogHandlerOptions struct {
	Silent bool
	Level  slog.Leveler
}

type BotLogHandler struct {
	w    io.Writer
	opts *BotLogHandlerOptions
	mu   *sync.Mutex
}

func NewBotLogHandler(w io.Writer, opts *BotLogHandlerOptions) *BotLogHandler {
	if opts == nil {
		opts = &BotLogHandlerOptions{Level: slog.LevelInfo}
	}
	return &BotLogHandler{
		w:    w,
		opts: opts,
		mu:   &sync.Mutex{},
	}
}

func (h *BotLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.opts.Silent {
		return false
	}
	return level >= h.opts.Level.Level()
}

func (h *BotLogHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opts.Silent {
		return nil
	}

	timeStr := time.Now().Format(DefaultTimeFormat)
	levelStr, levelColor := levelStyle(r.Level)

	component := ""
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			component = strings.ToUpper(a.Value.String())
			return false
		}
		return true
	})

	fmt.Fprintf(h.w, "%s", timeStr)

	if component != "" {
		if levelStr != "INFO" {
			fmt.Fprintf(h.w, " %s", levelColor.Sprintf("[%s]", levelStr))
		}
		compColor := getComponentColor(component)
		fmt.Fprintf(h.w, " %s\n", colorizeWithResets(compColor, fmt.Sprintf("[%s] %s", component, r.Message)))
	} else {
		displayMsg := fmt.Sprintf("[%s] %s", levelStr, r.Message)
		if levelStr == "INFO" && strings.HasPrefix(r.Message, "[") {
			if idx := strings.Index(r.Message, "]"); idx > 0 && idx < 20 {
				displayMsg = r.Message
			}
		}
		fmt.Fprintf(h.w, " %s\n", colorizeWithResets(levelColor, displayMsg))
	}

	return nil
}

func (h *BotLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *BotLogHandler) WithGroup(name string) slog.Handler       { return h }

// --- Formatting Helpers ---

func levelStyle(level slog.Level) (string, *color.Color) {
	switch {
	case level >= slog.LevelError+4:
		return "FATAL", fatalColor
	case level >= slog.LevelError:
		return "ERROR", errorColor
	case level >= slog.LevelWarn:
		return "WARN", warnColor
	case level >= slog.LevelInfo:
		return "INFO", infoColor
	default:
		return "DEBUG", debugColor
	}
}

func getComponentColor(name string) *color.Color {
	switch name {
	case "DATABASE":
		return databaseColor
	case "REACTION":
		return reactionColor
	case "SWEEP":
		return sweepColor
	case "BUTTON":
		return buttonColor
	case "AUTOROLE":
		return autoroleColor
	case "LOADER":
		return loaderColor
	case "METRICS":
		return metricsColor
	case "STATUS":
		return statusColor
	default:
		return color.New(color.FgCyan)
	}
}

func colorizeWithResets(c *color.Color, text string) string {
	if !strings.Contains(text, "\x1b[0m") {
		return c.Sprint(text)
	}

	marker := "@@@MSG@@@"
	wrapped := c.Sprint(marker)
	idx := strings.Index(wrapped, marker)
	if idx <= 0 {
		return text
	}
	startSeq := wrapped[:idx]

	modifiedText := strings.ReplaceAll(text, "\x1b[0m", "\x1b[0m"+startSeq)
	return c.Sprint(modifiedText)
}

// GetLogPath returns the mirror log file, or "" when file logging is off.
func GetLogPath() string {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile == nil {
		return ""
	}
	return logFile.Name()
}

// --- ANSI Stripper ---

type StripANSIWriter struct {
	w  io.Writer
	re *regexp.Regexp
}

func NewStripANSIWriter(w io.Writer) *StripANSIWriter {
	return &StripANSIWriter{
		w:  w,
		re: regexp.MustCompile(`\x1b\[[0-9;]*m`),
	}
}

func (s *StripANSIWriter) Write(p []byte) (n int, err error) {
	clean := s.re.ReplaceAll(p, []byte(""))
	_, err = s.w.Write(clean)
	return len(p), err
}

// --- Message Constants ---

const (
	// --- Infrastructure & Lifecycle ---
	MsgConfigFailedToLoad  = "Failed to load config: %v"
	MsgConfigMissingToken  = "DISCORD_TOKEN is not set in .env file"
	MsgDatabaseInitSuccess = "Database initialized successfully (schema v%d)"
	MsgDatabaseTableError  = "Failed to create table: %w"
	MsgDatabasePragmaError = "Failed to set pragma %s: %w"
	MsgDatabaseUpgrade     = "Upgraded stored panels to schema v%d (%d rows)"
	MsgDaemonStarting      = "Starting..."
	MsgBotStarting         = "Starting %s..."
	MsgBotReady            = "%s is ready! (ID: %s) (PID: %d) (Took: %dms)"
	MsgBotShutdown         = "Shutting down %s..."
	MsgBotKillingOld       = "Killing running instance... (PID: %d)"
	MsgBotOldTerminated    = "Old instance terminated."
	MsgBotRegisterFail     = "Command registration failed: %v"
	MsgGenericError        = "%v"

	// --- Legacy Import ---
	MsgLegacyImported    = "Imported legacy data from %s: %d guild(s), %d button panel(s), %d reaction panel(s)"
	MsgLegacySkipped     = "Legacy data at %s already imported, skipping"
	MsgLegacyBadEntry    = "Skipping legacy %s panel %s in guild %s: %v"
	MsgLegacyReadFail    = "Failed to read legacy data %s: %v"
	MsgLegacyImportFail  = "Legacy import failed: %v"

	// --- Command Loader & Registry ---
	MsgLoaderSyncCommands       = "Syncing %s commands..."
	MsgLoaderUpToDate           = "Commands are up to date. (Hash: %s)"
	MsgLoaderCleanup            = "[CLEANUP] Removing commands from previous dev guild: %s"
	MsgLoaderDevStarting        = "[DEV] Registering commands to guild: %s"
	MsgLoaderDevRegistered      = "[DEV] Registered: %s"
	MsgLoaderDevFail            = "[DEV] Registration failed: %v"
	MsgLoaderDevGlobalClear     = "[DEV] Verifying global commands are cleared..."
	MsgLoaderDevGlobalClearFail = "[DEV] Global clear skipped (likely rate limited): %v"
	MsgLoaderProdStarting       = "[PROD] Registering commands globally..."
	MsgLoaderProdRegistered     = "[PROD] Registered: %s"
	MsgLoaderProdFail           = "[PROD] Global registration failed: %w"
	MsgLoaderScanStarting       = "[SCAN] Checking all guilds for ghost commands..."
	MsgLoaderScanCleared        = "[SCAN] Cleared ghost commands from: %s (%s)"
	MsgLoaderPanicRecovered     = "Panic recovered in handler: %v"

	// --- Reaction Panels ---
	MsgReactionFetchFail      = "Dropped reaction event on %s: %v"
	MsgReactionPanelLookup    = "Failed to look up panel %s: %v"
	MsgReactionRetractFail    = "Failed to retract %s from %s on %s: %v"
	MsgReactionMutationFail   = "Failed to %s role %s for %s (%s): %v"
	MsgReactionMemberFail     = "Skipping member %s: %v"
	MsgReactionPageFail       = "Stopped paging %s on %s after %d user(s): %v"
	MsgReactionSeedFail       = "Failed to add %s to panel %s: %v"
	MsgReactionCleanupAborted = "Cleanup aborted for panel %s: %v"

	// --- Sweep ---
	MsgSweepStarting     = "[%s] Sweeping %d reaction panel(s) in guild %s"
	MsgSweepPanelSkipped = "[%s] Panel %s skipped: %v"
	MsgSweepPanelPanic   = "[%s] Panel %s panicked: %v"
	MsgSweepPanelDone    = "[%s] Panel %s: %d member(s), +%d/-%d role(s), %d failure(s)"
	MsgSweepGuildDone    = "[%s] Guild %s done in %s (%d/%d panel(s) synced)"
	MsgSweepListFail     = "Failed to list panels for guild %s: %v"
	MsgSweepGuildsFail   = "Failed to list guilds for startup sweep: %v"
	MsgSweepStartup      = "Startup sweep over %d guild(s)"
	MsgSweepShutdown     = "Shutting down sweep daemon..."

	// --- Buttons ---
	MsgButtonStale       = "This button is stale."
	MsgButtonRoleMissing = "Role missing now."
	MsgButtonNowHas      = "You now have <@&%s>."
	MsgButtonAdded       = "Added <@&%s>."
	MsgButtonRemoved     = "Removed <@&%s>."
	MsgButtonFailed      = "Failed. Check my role position and permissions."
	MsgButtonLookupFail  = "Button lookup failed for %s: %v"

	// --- Autorole ---
	MsgAutoroleFail        = "Failed autorole for %s in guild %s: %v"
	MsgAutoroleGranted     = "Granted autorole %s to %s in guild %s"
	MsgAutoroleSet         = "Autorole set to <@&%s>."
	MsgAutoroleCleared     = "Autorole cleared."
	MsgAutoroleSaveFail    = "Failed to save autorole: %v"
	ErrAutoroleSaveFailed  = "Failed to save the autorole. Please try again."
	ErrAutoroleRoleMissing = "That role no longer exists."

	// --- Role Commands ---
	MsgRoleAdded       = "Added <@&%s> to <@%s>."
	MsgRoleRemoved     = "Removed <@&%s> from <@%s>."
	ErrRoleFailed      = "Failed to update <@%s>: %v"
	ErrRoleMissingArgs = "Give me a user and a role."

	// --- Panel Commands ---
	MsgPanelPosted        = "Panel posted in <#%s>"
	MsgPanelButtonHeader  = "**%s**\nClick to toggle roles:"
	MsgPanelSyncComplete  = "Sync complete. %d panel(s), +%d/-%d role(s), %d failure(s)."
	ErrPanelNeedRoles     = "Give me at least one role."
	ErrPanelNeedPairs     = "Give me at least one emoji + role pair."
	ErrPanelCannotManage  = "I can’t manage <@&%s>. Move my role above it."
	ErrPanelDuplicateRole = "Each role may only appear once per panel."
	ErrPanelDuplicateEmoj = "Each emoji may only appear once per panel."
	ErrPanelPostFailed    = "Failed to post the panel: %v"
	ErrPanelSaveFailed    = "Panel posted but could not be saved: %v"
	ErrGuildOnly          = "This command can only be used in a server."
	MsgPanelSaveFail      = "Failed to save %s panel %s: %v"

	// --- Status Rotator ---
	MsgStatusRotated    = "Presence set to %q (next in %v)"
	MsgStatusUpdateFail = "Failed to update presence: %v"

	// --- Metrics ---
	MsgMetricsListening = "Serving metrics on %s"
	MsgMetricsFail      = "Metrics server stopped: %v"
)
