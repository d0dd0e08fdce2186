package worker

import (
	"github.com/spec-kit/entitlement-service/internal/service"
)

// StartFanoutWorker registers fanout handlers.
func StartFanoutWorker(fanoutService *service.FanoutService) {
	if fanoutService == nil {
		return
	}
	fanoutService.RegisterHandlers()
}
