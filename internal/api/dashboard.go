package api

import (
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/reliefmesh/reliefmesh/internal/workflow"
)

// DashboardHandler serves the polling dashboard: a status API plus a small
// page that submits to the intake endpoint and polls until all three records
// exist. The dashboard is strictly read-only.
type DashboardHandler struct {
	status       *workflow.Status
	intakeURL    string
	pollInterval int
}

// NewDashboardHandler creates a new DashboardHandler. intakeURL must point at
// the intake service; pollInterval is in seconds.
func NewDashboardHandler(status *workflow.Status, intakeURL string, pollInterval int) *DashboardHandler {
	if pollInterval <= 0 {
		pollInterval = 5
	}
	return &DashboardHandler{status: status, intakeURL: intakeURL, pollInterval: pollInterval}
}

// Register mounts the dashboard routes.
func (h *DashboardHandler) Register(e *echo.Echo) {
	e.GET("/", h.HandlePage)
	e.GET("/api/v1/status/:id", h.HandleStatus)
}

// HandleStatus reports phase completion for a request identifier.
// (GET /api/v1/status/:id)
func (h *DashboardHandler) HandleStatus(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing request id")
	}

	status, err := h.status.Check(ctx, id)
	if err != nil {
		// No internal error text reaches the dashboard user.
		return echo.NewHTTPError(http.StatusInternalServerError, "status lookup failed")
	}
	return c.JSON(http.StatusOK, status)
}

// HandlePage renders the dashboard page.
// (GET /)
func (h *DashboardHandler) HandlePage(c echo.Context) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	w.WriteHeader(http.StatusOK)
	return dashboardTemplate.Execute(w, map[string]any{
		"IntakeURL":    h.intakeURL,
		"PollInterval": h.pollInterval,
	})
}

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>ReliefMesh Response Dashboard</title>
<style>
body { font-family: sans-serif; margin: 2em; max-width: 60em; }
fieldset { margin-bottom: 1.5em; }
.phase { display: inline-block; width: 30%; padding: 1em; margin-right: 1%;
         border: 1px solid #ccc; border-radius: 4px; vertical-align: top; }
.pending { background: #fff8e0; }
.done { background: #e7f7e7; }
pre { white-space: pre-wrap; font-size: 0.8em; max-height: 20em; overflow-y: auto; }
</style>
</head>
<body>
<h1>ReliefMesh Response Dashboard</h1>
<fieldset>
<legend>Initiate New Analysis</legend>
<label>Region <input id="region" size="40" placeholder="Cebu Province, Philippines"></label>
<label>Event <input id="event" size="30" placeholder="Typhoon Kalmaegi"></label>
<button onclick="initiate()">Start</button>
<span id="submit-status"></span>
</fieldset>
<div id="phases">
<div class="phase pending" id="phase-request"><h3>1. Rescue Request</h3><pre></pre></div>
<div class="phase pending" id="phase-report"><h3>2. Damage Report</h3><pre></pre></div>
<div class="phase pending" id="phase-plan"><h3>3. Logistics Plan</h3><pre></pre></div>
</div>
<script>
var intakeURL = {{.IntakeURL}};
var pollMillis = {{.PollInterval}} * 1000;
var currentID = null;
var timer = null;

function initiate() {
  var body = {
    region_name: document.getElementById('region').value,
    event_name: document.getElementById('event').value
  };
  if (timer) { clearInterval(timer); timer = null; }
  currentID = null;
  fetch(intakeURL + '/', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify(body)
  }).then(function (r) { return r.json(); }).then(function (resp) {
    var s = document.getElementById('submit-status');
    if (resp.status === 'success') {
      currentID = resp.request_id;
      s.textContent = 'Workflow started: ' + currentID;
      render({request: {}, report: {}, plan: {}});
      timer = setInterval(poll, pollMillis);
    } else {
      s.textContent = 'Error: ' + resp.message;
    }
  }).catch(function () {
    document.getElementById('submit-status').textContent = 'Could not reach intake service.';
  });
}

function poll() {
  if (!currentID) return;
  fetch('/api/v1/status/' + currentID).then(function (r) { return r.json(); }).then(function (st) {
    render(st);
    if (st.complete && timer) { clearInterval(timer); timer = null; }
  });
}

function render(st) {
  setPhase('phase-request', st.request);
  setPhase('phase-report', st.report);
  setPhase('phase-plan', st.plan);
}

function setPhase(id, phase) {
  var el = document.getElementById(id);
  el.className = 'phase ' + (phase && phase.complete ? 'done' : 'pending');
  el.querySelector('pre').textContent =
    phase && phase.record ? JSON.stringify(phase.record, null, 2) : 'pending';
}
</script>
</body>
</html>
`))
