package jobs

import (
	"time"

	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
	"github.com/qualitysquare/fieldops-backend/pkg/enums"
)

// statusUpdate writes the new status to both stored status fields. The write
// only lands while the stored values still match what the job was read from.
func statusUpdate(job Job, next enums.JobStatus, now time.Time) docstore.Update {
	return docstore.Update{
		Set: map[string]any{
			fieldStatus:        string(next),
			fieldRequestStatus: string(next),
			fieldUpdatedAt:     now,
		},
		Precondition: docstore.Filter{
			fieldStatus:        job.rawStatus,
			fieldRequestStatus: job.rawRequestStatus,
		},
	}
}

// submitRescheduleUpdate replaces any previous request with a pending one.
func submitRescheduleUpdate(requestedBy, reason string, proposed *time.Time, now time.Time) docstore.Update {
	request := map[string]any{
		"requestedBy":   requestedBy,
		"requestedDate": now,
		"reason":        reason,
		"isApproved":    nil,
	}
	if proposed != nil {
		request["newProposedDate"] = *proposed
	}
	return docstore.Update{
		Set: map[string]any{
			fieldRescheduleRequest: request,
			fieldUpdatedAt:         now,
		},
	}
}

// decideRescheduleUpdate records an approval or a decline on the request's
// stored location. Approval with a date moves the job: installDate, the
// proposed date and every assignment entry's date are rewritten so the
// resolved scheduled date agrees for every requester.
func decideRescheduleUpdate(raw docstore.Document, request *RescheduleRequest, approve bool, newDate *time.Time, now time.Time) docstore.Update {
	path := request.Path()
	set := map[string]any{
		path + ".isApproved":   approve,
		path + ".approvedDate": now,
		fieldUpdatedAt:         now,
	}
	if approve {
		set[fieldStatus] = string(enums.JobStatusRescheduled)
		set[fieldRequestStatus] = string(enums.JobStatusRescheduled)
		if newDate != nil {
			set[fieldInstallDate] = *newDate
			set[path+".newProposedDate"] = *newDate
			if entries, ok := redatedAssignments(raw, *newDate); ok {
				set[fieldAssignments] = entries
			}
		}
	}
	return docstore.Update{
		Set: set,
		Precondition: docstore.Filter{
			path + ".isApproved": nil,
		},
	}
}

// redatedAssignments copies the stored assignments list with every entry's
// date replaced. Entries that are not maps are kept unchanged.
func redatedAssignments(raw docstore.Document, date time.Time) ([]any, bool) {
	value, ok := raw.Lookup(fieldAssignments)
	if !ok {
		return nil, false
	}
	var list []any
	switch v := value.(type) {
	case []any:
		list = v
	case []map[string]any:
		for _, item := range v {
			list = append(list, item)
		}
	default:
		return nil, false
	}
	if len(list) == 0 {
		return nil, false
	}

	out := make([]any, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			out = append(out, item)
			continue
		}
		copied := make(map[string]any, len(entry)+1)
		for k, v := range entry {
			copied[k] = v
		}
		copied["date"] = date
		out = append(out, copied)
	}
	return out, true
}
