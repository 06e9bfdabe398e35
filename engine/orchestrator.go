package engine

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"promopilot/models"
)

// RuleDetail is one rule's slice of the trigger report.
type RuleDetail struct {
	AutomationID uint   `json:"ruleId"`
	Name         string `json:"name"`
	Sent         int    `json:"sent"`
	Failed       int    `json:"failed"`
	Skipped      int    `json:"skipped"`
	Error        string `json:"error,omitempty"`
}

// Report aggregates one trigger invocation.
type Report struct {
	Processed int          `json:"processed"`
	Sent      int          `json:"sent"`
	Failed    int          `json:"failed"`
	Skipped   int          `json:"skipped"`
	Details   []RuleDetail `json:"details"`
}

// Orchestrator is the trigger entry point: it loads the enabled
// time-based rules, evaluates which fire today, and drives resolution,
// gating and dispatch per rule. One rule's failure never aborts the
// batch.
type Orchestrator struct {
	DB         *gorm.DB
	Resolver   *ContactResolver
	Dispatcher *Dispatcher
	Holidays   HolidayCalendar
	Activity   ActivityNotifier
	Logger     *log.Logger

	// LogError is the structured error sink (console + Sentry in
	// production). Optional; nil means errors only reach the report.
	LogError func(errorType string, err error, context map[string]interface{})

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (o *Orchestrator) logError(errorType string, err error, context map[string]interface{}) {
	if o.LogError != nil {
		o.LogError(errorType, err, context)
	}
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Run processes every enabled rule matching the kind filter ("all" or a
// single time-based kind). Event-driven kinds are fired from their own
// entry points and never selected here.
func (o *Orchestrator) Run(filter string) Report {
	now := o.now()

	kinds := models.TimeBasedKinds
	if filter != "" && filter != "all" {
		kinds = nil
		for _, k := range models.TimeBasedKinds {
			if k == filter {
				kinds = []string{k}
				break
			}
		}
		if kinds == nil {
			o.Logger.Printf("Ignoring unknown automation kind filter %q", filter)
			return Report{Details: []RuleDetail{}}
		}
	}

	var rules []models.Automation
	if err := o.DB.Where("enabled = ? AND kind IN ?", true, kinds).Order("id").Find(&rules).Error; err != nil {
		o.logError("automation_rules_load_failed", err, nil)
		return Report{Details: []RuleDetail{}}
	}

	report := Report{Details: make([]RuleDetail, 0, len(rules))}
	usersWithSends := make(map[uint]bool)

	for i := range rules {
		rule := &rules[i]
		detail := o.processRule(rule, now)

		report.Processed++
		report.Sent += detail.Sent
		report.Failed += detail.Failed
		report.Skipped += detail.Skipped
		if detail.Error != "" && detail.Sent+detail.Failed+detail.Skipped == 0 {
			// The rule blew up before any recipient was attempted; count
			// the rule itself as the failure.
			report.Failed++
		}
		report.Details = append(report.Details, detail)

		if detail.Sent > 0 {
			usersWithSends[rule.UserID] = true
		}
	}

	// Best-effort activity sync per user with at least one successful
	// send. Failures are logged and never touch the report.
	if o.Activity != nil {
		for userID := range usersWithSends {
			if err := o.Activity.Notify(userID); err != nil {
				o.Logger.Printf("Activity sync failed for user %d: %v", userID, err)
			}
		}
	}

	return report
}

// processRule runs the full pipeline for one rule inside a failure
// boundary: panics and errors become the detail's Error field.
func (o *Orchestrator) processRule(rule *models.Automation, now time.Time) (detail RuleDetail) {
	detail = RuleDetail{AutomationID: rule.ID, Name: rule.Name}

	defer func() {
		if r := recover(); r != nil {
			detail.Error = fmt.Sprintf("%v", r)
			o.logError("automation_rule_panic", fmt.Errorf("%v", r), map[string]interface{}{
				"automation_id": rule.ID,
				"kind":          rule.Kind,
			})
		}
	}()

	var user models.User
	if err := o.DB.First(&user, rule.UserID).Error; err != nil {
		detail.Error = fmt.Sprintf("owner lookup failed: %v", err)
		return detail
	}
	if !user.IsActive {
		return detail
	}

	day := LocalToday(rule.Timezone, now)

	if rule.Kind == models.KindHoliday {
		params := rule.HolidayParams()
		if params.HolidayID == "" {
			return detail
		}
		month, dom, err := o.Holidays.Resolve(params.HolidayID, day.Year)
		if err != nil {
			detail.Error = fmt.Sprintf("holiday lookup failed: %v", err)
			return detail
		}
		if !HolidayFiresToday(day, month, dom, rule.DayOffset) {
			return detail
		}
	}

	candidates, err := o.Resolver.Resolve(rule, day, now)
	if err != nil {
		detail.Error = err.Error()
		o.logError("automation_resolve_failed", err, map[string]interface{}{"automation_id": rule.ID})
		return detail
	}
	if len(candidates) == 0 {
		return detail
	}

	outcome, err := o.Dispatcher.Dispatch(&user, rule, day, candidates)
	detail.Sent = outcome.Sent
	detail.Failed = outcome.Failed
	detail.Skipped = outcome.Skipped
	if err != nil {
		detail.Error = err.Error()
		o.logError("automation_dispatch_failed", err, map[string]interface{}{"automation_id": rule.ID})
	}

	// A rule that only skipped everyone did not trigger.
	if outcome.Sent+outcome.Failed > 0 {
		if err := o.DB.Model(&models.Automation{}).Where("id = ?", rule.ID).
			Updates(map[string]interface{}{
				"total_sent":        gorm.Expr("total_sent + ?", outcome.Sent),
				"last_triggered_at": now,
			}).Error; err != nil {
			o.Logger.Printf("Failed to update counters for automation %d: %v", rule.ID, err)
		}
	}

	return detail
}
