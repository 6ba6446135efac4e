package home

import (
	"fmt"

	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/rolekeeper/sys"
)

// handleRRSync runs a sweep of this guild before answering.
func handleRRSync(event *events.ApplicationCommandInteractionCreate) {
	_ = event.DeferCreateMessage(true)

	report, err := service.SweepGuild(sys.AppContext, *event.GuildID())
	if err != nil {
		editDeferred(event, fmt.Sprintf(sys.MsgGenericError, err))
		return
	}
	editDeferred(event, fmt.Sprintf(sys.MsgPanelSyncComplete, report.Synced, report.Stats.Added, report.Stats.Removed, report.Stats.Failed))
}
