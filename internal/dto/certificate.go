package dto

import "time"

// CertificateResponse describes a generated certificate.
type CertificateResponse struct {
	ApplicationID  string    `json:"application_id"`
	RegistrationNo string    `json:"registration_no"`
	TransactionID  string    `json:"transaction_id"`
	Hash           string    `json:"hash"`
	DownloadURL    string    `json:"download_url"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// VerifyCertificateRequest checks a certificate by transaction id or hash.
type VerifyCertificateRequest struct {
	TransactionID string `json:"transaction_id" validate:"required_without=Hash"`
	Hash          string `json:"hash" validate:"required_without=TransactionID"`
}

// VerifyCertificateResponse reports the verification outcome.
type VerifyCertificateResponse struct {
	Valid          bool       `json:"valid"`
	Reason         string     `json:"reason,omitempty"`
	RegistrationNo string     `json:"registration_no,omitempty"`
	StudentName    string     `json:"student_name,omitempty"`
	Course         string     `json:"course,omitempty"`
	Branch         string     `json:"branch,omitempty"`
	TransactionID  string     `json:"transaction_id,omitempty"`
	GeneratedAt    *time.Time `json:"generated_at,omitempty"`
}

// BackfillResponse summarises a certificate backfill run.
type BackfillResponse struct {
	Scanned   int               `json:"scanned"`
	Generated int               `json:"generated"`
	Failed    int               `json:"failed"`
	Results   []BackfillOutcome `json:"results"`
}

// BackfillOutcome reports one application's backfill result.
type BackfillOutcome struct {
	ApplicationID string `json:"application_id"`
	OK            bool   `json:"ok"`
	Error         string `json:"error,omitempty"`
}
