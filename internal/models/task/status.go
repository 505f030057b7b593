package task

// Status - этап документооборота задачи
type Status string

const (
	StatusDispatchedOfficer Status = "dispatched-officer"
	StatusDraft             Status = "draft"
	StatusFinalizedDraft    Status = "finalized-draft"
	StatusSignedDispatched  Status = "signed-dispatched"
)

// Initial и Terminal - первый и единственный архивный статус
const (
	Initial  = StatusDispatchedOfficer
	Terminal = StatusSignedDispatched
)

type statusInfo struct {
	progress int
	label    string
}

// порядок важен: прогресс растёт вдоль него
var statusOrder = []Status{
	StatusDispatchedOfficer,
	StatusDraft,
	StatusFinalizedDraft,
	StatusSignedDispatched,
}

var statusTable = map[Status]statusInfo{
	StatusDispatchedOfficer: {progress: 25, label: "Dispatched to officer"},
	StatusDraft:             {progress: 50, label: "Draft"},
	StatusFinalizedDraft:    {progress: 75, label: "Finalized draft"},
	StatusSignedDispatched:  {progress: 100, label: "Signed and dispatched to CD/HM"},
}

// Statuses возвращает копию упорядоченного списка статусов.
func Statuses() []Status {
	res := make([]Status, len(statusOrder))
	copy(res, statusOrder)
	return res
}

// ProgressFor - процент выполнения для статуса, 0 для неизвестного значения.
func ProgressFor(s Status) int {
	return statusTable[s].progress
}

func IsTerminal(s Status) bool {
	return s == Terminal
}

func Valid(s Status) bool {
	_, ok := statusTable[s]
	return ok
}

// Label - формулировка статуса, принятая в канцелярии.
func (s Status) Label() string {
	if info, ok := statusTable[s]; ok {
		return info.label
	}
	return string(s)
}
