package bot

import (
	"fmt"
	"strings"

	"ridematch/pkg/models"
)

const timeLayout = "2006-01-02 15:04"

var categoryIcons = map[models.Category]string{
	models.CategoryBike:     "🏍",
	models.CategoryCar:      "🚗",
	models.CategoryRickshaw: "🛺",
}

func kindLabel(kind models.EntryKind) string {
	if kind == models.KindRide {
		return "Ride"
	}
	return "Request"
}

func formatRequest(r *models.RideRequest) string {
	return fmt.Sprintf("📦 Request #%d %s\n📍 %s ➡️ %s\n💰 %s\n🕒 %s",
		r.ID, categoryIcons[r.Category], r.Pickup, r.Drop, r.Payment.StringFixed(2), r.CreatedAt.Format(timeLayout))
}

func formatRide(r *models.Ride) string {
	return fmt.Sprintf("🚖 Ride #%d %s\n📍 %s ➡️ %s\n💰 %s\n📊 %s",
		r.ID, categoryIcons[r.Category], r.Pickup, r.Drop, r.Payment.StringFixed(2), r.Status)
}

func formatCurrent(cur *models.CurrentRide) string {
	if cur.Kind == models.KindRide {
		return formatRide(cur.Ride)
	}
	return formatRequest(cur.Request) + "\n⏳ waiting for a driver"
}

func formatHistory(entries []models.HistoryEntry) string {
	var sb strings.Builder
	for i, e := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s #%d %s ➡️ %s, %s, %s",
			i+1, kindLabel(e.Kind), e.ID, e.Pickup, e.Drop, e.Payment.StringFixed(2), e.Status)
	}
	return sb.String()
}

func formatPayments(payments []*models.Payment) string {
	var sb strings.Builder
	for i, p := range payments {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "💵 Ride #%d: %s (%s)", p.RideID, p.Amount.StringFixed(2), p.CreatedAt.Format(timeLayout))
	}
	return sb.String()
}

// nextStatuses lists the buttons a driver gets for a ride.
func nextStatuses(status models.RideStatus) []models.RideStatus {
	var next []models.RideStatus
	for _, s := range []models.RideStatus{models.RideInProgress, models.RideCompleted, models.RideCancelled} {
		if status.CanTransitionTo(s) {
			next = append(next, s)
		}
	}
	return next
}
