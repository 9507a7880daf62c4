package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"ridematch/pkg/apperr"
	"ridematch/pkg/models"
)

const (
	callbackAccept = "acc"
	callbackReject = "rej"
	callbackStatus = "st"
	callbackCancel = "cnl"
)

// parseRequestArgs reads "pickup | drop | category | payment".
func parseRequestArgs(payload string) (models.NewRideRequest, error) {
	parts := strings.Split(payload, "|")
	if len(parts) != 4 {
		return models.NewRideRequest{}, apperr.InvalidInput("%s", messages["request_usage"])
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	payment, err := decimal.NewFromString(strings.ReplaceAll(parts[3], ",", "."))
	if err != nil {
		return models.NewRideRequest{}, apperr.InvalidInput("payment %q is not a number", parts[3])
	}
	return models.NewRideRequest{
		Pickup:   parts[0],
		Drop:     parts[1],
		Category: models.Category(strings.ToLower(parts[2])),
		Payment:  payment,
	}, nil
}

func parseLinkArgs(payload string) (email, password string, err error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", "", apperr.InvalidInput("usage: /link email password")
	}
	return fields[0], fields[1], nil
}

func parseID(payload string) (int64, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(payload), "#")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidInput("expected a numeric id, got %q", payload)
	}
	return id, nil
}

// parseStatusArgs reads "id status".
func parseStatusArgs(payload string) (int64, models.RideStatus, error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return 0, "", apperr.InvalidInput("usage: /status id in_progress|completed|cancelled")
	}
	id, err := parseID(fields[0])
	if err != nil {
		return 0, "", err
	}
	return id, models.RideStatus(strings.ToLower(fields[1])), nil
}

func callbackData(action string, id int64, arg string) string {
	if arg == "" {
		return fmt.Sprintf("%s_%d", action, id)
	}
	return fmt.Sprintf("%s_%d_%s", action, id, arg)
}

// parseCallback splits "action_id" or "action_id_arg". Buttons have no
// handler of their own, so OnCallback sees the raw data with its leading \f.
func parseCallback(data string) (action string, id int64, arg string, err error) {
	data = strings.TrimPrefix(strings.TrimSpace(data), "\f")
	parts := strings.SplitN(data, "_", 3)
	if len(parts) < 2 {
		return "", 0, "", apperr.InvalidInput("malformed button")
	}

	switch parts[0] {
	case callbackAccept, callbackReject, callbackCancel:
		if len(parts) != 2 {
			return "", 0, "", apperr.InvalidInput("malformed button")
		}
	case callbackStatus:
		if len(parts) != 3 {
			return "", 0, "", apperr.InvalidInput("malformed button")
		}
		arg = parts[2]
	default:
		return "", 0, "", apperr.InvalidInput("unknown button %q", parts[0])
	}

	id, err = parseID(parts[1])
	if err != nil {
		return "", 0, "", err
	}
	return parts[0], id, arg, nil
}
