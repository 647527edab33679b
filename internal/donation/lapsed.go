package donation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/peteski22/steward/internal/agent"
)

const (
	lapsedSubject = "{{count}} lapsed givers at {{churchName}}"
	lapsedBody    = "{{count}} regular givers have not given in {{days}} days or more. " +
		"Combined average gift at risk: ${{totalAverageGift}}.\n\n{{details}}"
)

// CheckLapsedGivers runs lapsed-giver detection on its own, for callers that schedule it separately.
// It is skipped unless DetectLapsedGivers is set, since the lapsed settings are only validated then.
func (a *Agent) CheckLapsedGivers(ctx context.Context) agent.Result {
	if !a.base.IsActive() || !a.settings.DetectLapsedGivers {
		return a.base.Skipped()
	}

	run := a.base.Start()
	a.checkLapsedGivers(ctx, run)
	return run.Result()
}

// DetectLapsedGivers returns regular donors whose last gift is at least LapsedGiverDays old,
// sorted by lifetime giving, largest first. It has no side effects.
func (a *Agent) DetectLapsedGivers() []LapsedGiver {
	today := a.base.Context().CurrentDate

	var lapsed []LapsedGiver
	for donorID, h := range a.history {
		if h.TotalDonations < a.settings.LapsedGiverMinDonations || h.TotalDonations == 0 {
			continue
		}

		days := agent.DaysBetween(h.LastDonationDate, today)
		if days < a.settings.LapsedGiverDays {
			continue
		}

		if h.DonorID != "" {
			donorID = h.DonorID
		}
		lg := LapsedGiver{
			AverageGift:           h.TotalAmount / float64(h.TotalDonations),
			DaysSinceLastDonation: days,
			DonorID:               donorID,
			LastDonationDate:      h.LastDonationDate,
			TotalAmount:           h.TotalAmount,
			TotalDonations:        h.TotalDonations,
		}
		if p, ok := a.people[donorID]; ok {
			lg.Donor = &p
		}
		lapsed = append(lapsed, lg)
	}

	sort.Slice(lapsed, func(i, j int) bool {
		if lapsed[i].TotalAmount != lapsed[j].TotalAmount {
			return lapsed[i].TotalAmount > lapsed[j].TotalAmount
		}
		return lapsed[i].DonorID < lapsed[j].DonorID
	})
	return lapsed
}

// checkLapsedGivers sends one consolidated alert to finance staff and records an audit notification per donor.
func (a *Agent) checkLapsedGivers(ctx context.Context, run *agent.Run) {
	lapsed := a.DetectLapsedGivers()
	if len(lapsed) == 0 {
		run.Info("no lapsed givers found", map[string]any{
			"donors_checked": len(a.history),
		})
		return
	}

	var totalAverage float64
	details := make([]string, 0, len(lapsed))
	for _, lg := range lapsed {
		totalAverage += lg.AverageGift
		details = append(details, fmt.Sprintf("- %s: %d gifts, $%.2f total, last gift %d days ago",
			lapsedName(lg), lg.TotalDonations, lg.TotalAmount, lg.DaysSinceLastDonation))
	}

	data := map[string]string{
		"churchName":       a.settings.ChurchName,
		"count":            strconv.Itoa(len(lapsed)),
		"days":             strconv.Itoa(a.settings.LapsedGiverDays),
		"details":          strings.Join(details, "\n"),
		"totalAverageGift": fmt.Sprintf("%.2f", totalAverage),
	}

	run.Warn(fmt.Sprintf("found %d lapsed givers", len(lapsed)), map[string]any{
		"total_average_gift": totalAverage,
	})

	run.Send(ctx, agent.ChannelEmail, agent.Message{
		To:       a.settings.LapsedGiverAlertEmail,
		Template: agent.TemplateLapsedGiverAlert,
		Subject:  agent.Substitute(lapsedSubject, data),
		Body:     agent.Substitute(lapsedBody, data),
		Data:     data,
	}, "")

	for _, lg := range lapsed {
		run.RecordAction(agent.ActionNotification, true, agent.ActionOptions{
			TargetPersonID: lg.DonorID,
			Metadata: map[string]any{
				"tag":                      TagLapsedGiver,
				"average_gift":             lg.AverageGift,
				"days_since_last_donation": lg.DaysSinceLastDonation,
				"total_amount":             lg.TotalAmount,
				"total_donations":          lg.TotalDonations,
			},
		})
	}
}

func lapsedName(lg LapsedGiver) string {
	if lg.Donor != nil {
		if name := lg.Donor.FullName(); name != "" {
			return name
		}
	}
	return lg.DonorID
}
