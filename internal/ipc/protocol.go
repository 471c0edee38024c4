package ipc

type Request struct {
	Command string `json:"command"`
}

type Response struct {
	OK       bool   `json:"ok"`
	State    string `json:"state,omitempty"`
	Locale   string `json:"locale,omitempty"`
	Message  string `json:"message,omitempty"`
	PONumber string `json:"po_number,omitempty"`
	Details  string `json:"details,omitempty"`
	Error    string `json:"error,omitempty"`
}
