package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"promopilot/engine"
)

// TriggerController exposes the machine-to-machine automation trigger.
type TriggerController struct {
	Orchestrator *engine.Orchestrator
	Logger       *log.Logger
}

func NewTriggerController(orchestrator *engine.Orchestrator, logger *log.Logger) *TriggerController {
	return &TriggerController{
		Orchestrator: orchestrator,
		Logger:       logger,
	}
}

type triggerRequest struct {
	Type string `json:"type"`
}

// HandleTrigger runs the orchestrator for the requested kind ("all" when
// the body is empty) and returns the aggregated report.
func (tc *TriggerController) HandleTrigger(c *fiber.Ctx) error {
	req := triggerRequest{Type: "all"}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		if req.Type == "" {
			req.Type = "all"
		}
	}

	if !validTriggerType(req.Type) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown automation type: " + req.Type,
		})
	}

	tc.Logger.Printf("Trigger invoked for type %q", req.Type)
	report := tc.Orchestrator.Run(req.Type)
	tc.Logger.Printf("Trigger finished: processed=%d sent=%d failed=%d skipped=%d",
		report.Processed, report.Sent, report.Failed, report.Skipped)

	return c.JSON(report)
}

func validTriggerType(t string) bool {
	switch t {
	case "all", "birthday", "holiday", "anniversary", "inactivity", "trial_ending":
		return true
	}
	return false
}
