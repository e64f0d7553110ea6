package api

import (
	"net/http"

	"FxDesk/internal/domain/models"
	xhttp "FxDesk/pkg/http"

	"github.com/labstack/echo/v4"
)

type submitJobResponse struct {
	JobID  string           `json:"job_id"`
	Status models.JobStatus `json:"status"`
}

func (h *AnalysisHandler) SubmitJob(c echo.Context) error {
	if h.jobs == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("job queue disabled"))
	}
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}

	st, err := h.jobs.Submit(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "submit job", err)
	}
	return c.JSON(http.StatusAccepted, submitJobResponse{JobID: st.JobID, Status: st.Status})
}

func (h *AnalysisHandler) GetJob(c echo.Context) error {
	if h.jobs == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("job queue disabled"))
	}
	p := &models.JobIDParam{}
	if verr := xhttp.ReadAndValidateRequest(c, p); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}

	st, err := h.jobs.Get(c.Request().Context(), p.ID)
	if err != nil {
		return h.fail(c, "get job", err)
	}
	return c.JSON(http.StatusOK, st)
}
