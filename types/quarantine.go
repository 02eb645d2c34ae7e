package types

// QuarantineState is the lifecycle state of an uploaded file under review.
// Approved and Rejected are terminal; a rejected file requires a new upload.
type QuarantineState string

const (
	QuarantinePending  QuarantineState = "pending"
	QuarantineScanning QuarantineState = "scanning"
	QuarantineApproved QuarantineState = "approved"
	QuarantineRejected QuarantineState = "rejected"
)

// Rejection and scoring reasons recorded on a QuarantineRecord.
const (
	ReasonTooLarge           = "too_large"
	ReasonEmptyFile          = "empty_file"
	ReasonTypeMismatch       = "type_mismatch"
	ReasonDisallowedType     = "disallowed_type"
	ReasonExecutablePayload  = "executable_payload"
	ReasonScriptPayload      = "script_payload"
	ReasonSuspiciousFilename = "suspicious_filename"
	ReasonPathTraversal      = "path_traversal"
	ReasonHighEntropy        = "high_entropy"
)

// QuarantineRecord is the scanner's verdict for one uploaded file.
// It is created on upload and mutated only by the scanner. When State is
// Approved, WorkingRef points at the promoted file in the working media area;
// until then the bytes live only in quarantine storage.
type QuarantineRecord struct {
	ID               string          `json:"id"`
	OriginalFilename string          `json:"original_filename"`
	DeclaredMIME     string          `json:"declared_mime"`
	SniffedMIME      string          `json:"sniffed_mime"`
	SizeBytes        int64           `json:"size_bytes"`
	SecurityScore    int             `json:"security_score"`
	State            QuarantineState `json:"state"`
	Reasons          []string        `json:"reasons,omitempty"`
	WorkingRef       string          `json:"working_ref,omitempty"`
}
