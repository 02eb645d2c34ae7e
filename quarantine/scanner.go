package quarantine

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"forkful/audit"
	"forkful/types"
)

// Sniffed types the pipeline will extract from. Everything else is a scoring
// signal even when the bytes are otherwise harmless.
var allowedMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Binary signatures that must never appear at the start of an image upload.
var executableSignatures = [][]byte{
	{0x4d, 0x5a},             // Windows PE
	{0x7f, 0x45, 0x4c, 0x46}, // ELF
	{0xca, 0xfe, 0xba, 0xbe}, // Java class / fat Mach-O
	{0xfe, 0xed, 0xfa},       // Mach-O
	{0x50, 0x4b, 0x03, 0x04}, // ZIP container
	{0x52, 0x61, 0x72, 0x21}, // RAR
	{0x1f, 0x8b, 0x08},       // GZIP
}

var scriptPatterns = [][]byte{
	[]byte("<script"),
	[]byte("javascript:"),
	[]byte("vbscript:"),
	[]byte("<?php"),
	[]byte("#!/bin/"),
	[]byte("cmd.exe"),
	[]byte("powershell"),
}

var dangerousExtensions = []string{
	".exe", ".bat", ".cmd", ".scr", ".pif", ".com", ".js", ".vbs", ".jar", ".sh",
}

// Risk weights per signal. The security score is the clamped sum; a score at
// or above the configured threshold rejects the upload.
const (
	weightTypeMismatch   = 25
	weightDisallowedType = 40
	weightExecutable     = 60
	weightScript         = 30
	weightTraversal      = 60
	weightSuspiciousName = 30
	weightHighEntropy    = 15

	entropyWindow    = 1024
	entropyThreshold = 7.5
)

// ScannerConfig holds the quarantine policy knobs.
type ScannerConfig struct {
	MaxUploadBytes int64
	// ScoreThreshold is the risk score at or above which a file is rejected.
	ScoreThreshold int
	// RetainRejected keeps rejected files in quarantine for audit instead of
	// deleting them.
	RetainRejected bool
	// ScanConcurrency bounds parallel scans in ScanAll.
	ScanConcurrency int
}

// Scanner validates and scores uploaded files before any trust is extended
// to them. It owns the quarantine state machine: Pending → Scanning →
// {Approved, Rejected}, both terminal.
type Scanner struct {
	store  Store
	events audit.SecuritySink
	cfg    ScannerConfig
}

// NewScanner creates a scanner over the given store and security event sink.
func NewScanner(store Store, events audit.SecuritySink, cfg ScannerConfig) *Scanner {
	if cfg.ScanConcurrency <= 0 {
		cfg.ScanConcurrency = 1
	}
	return &Scanner{store: store, events: events, cfg: cfg}
}

// Scan validates one upload and returns its terminal QuarantineRecord.
// The returned error reports storage/infrastructure problems only; a
// security rejection is a Rejected record, not an error.
func (s *Scanner) Scan(ctx context.Context, upload *types.FileUpload) (*types.QuarantineRecord, error) {
	record := &types.QuarantineRecord{
		ID:               types.GenerateID(upload.Filename + time.Now().Format(time.RFC3339Nano)),
		OriginalFilename: upload.Filename,
		DeclaredMIME:     upload.DeclaredMIME,
		SizeBytes:        int64(len(upload.Data)),
		State:            types.QuarantinePending,
	}

	// Size gate first: oversized and empty uploads never touch storage.
	if record.SizeBytes == 0 {
		record.SecurityScore = 100
		return s.reject(ctx, record, types.ReasonEmptyFile), nil
	}
	if record.SizeBytes > s.cfg.MaxUploadBytes {
		record.SecurityScore = 100
		return s.reject(ctx, record, types.ReasonTooLarge), nil
	}

	// Untrusted bytes go to the isolated quarantine area before any
	// inspection runs.
	if _, err := s.store.WriteQuarantine(ctx, record.ID, upload.Filename, upload.Data); err != nil {
		return nil, fmt.Errorf("quarantine write failed: %w", err)
	}
	record.State = types.QuarantineScanning

	score, reasons := s.inspect(upload, record)
	record.SecurityScore = score
	record.Reasons = reasons

	if score >= s.cfg.ScoreThreshold {
		if !s.cfg.RetainRejected {
			if err := s.store.Discard(ctx, record.ID, upload.Filename); err != nil {
				log.Printf("Warning: failed to discard rejected file %s: %v", record.ID, err)
			}
		}
		record.State = types.QuarantineRejected
		s.emit(ctx, record)
		return record, nil
	}

	// Promote before flipping to Approved so the record is never observable
	// as approved while the bytes are still only in quarantine.
	workingRef, err := s.store.Promote(ctx, record.ID, upload.Filename)
	if err != nil {
		return nil, fmt.Errorf("promotion failed for %s: %w", record.ID, err)
	}
	record.WorkingRef = workingRef
	record.State = types.QuarantineApproved
	s.emit(ctx, record)
	return record, nil
}

// ScanAll scans several uploads concurrently under the configured bound.
// The result slice is aligned with the input; a storage error on any file
// fails the batch.
func (s *Scanner) ScanAll(ctx context.Context, uploads []*types.FileUpload) ([]*types.QuarantineRecord, error) {
	records := make([]*types.QuarantineRecord, len(uploads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ScanConcurrency)
	for i, upload := range uploads {
		g.Go(func() error {
			record, err := s.Scan(gctx, upload)
			if err != nil {
				return err
			}
			records[i] = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// inspect computes the weighted risk score and its contributing reasons.
func (s *Scanner) inspect(upload *types.FileUpload, record *types.QuarantineRecord) (int, []string) {
	score := 0
	var reasons []string
	add := func(weight int, reason string) {
		score += weight
		reasons = append(reasons, reason)
	}

	sniffed := mimetype.Detect(upload.Data)
	record.SniffedMIME = sniffed.String()

	if upload.DeclaredMIME != "" && !sniffed.Is(upload.DeclaredMIME) {
		add(weightTypeMismatch, types.ReasonTypeMismatch)
	}
	if !allowedMIMEs[baseMIME(sniffed.String())] {
		add(weightDisallowedType, types.ReasonDisallowedType)
	}
	if hasExecutableSignature(upload.Data) {
		add(weightExecutable, types.ReasonExecutablePayload)
	}
	if hasScriptPayload(upload.Data) {
		add(weightScript, types.ReasonScriptPayload)
	}
	if hasTraversal(upload.Filename) {
		add(weightTraversal, types.ReasonPathTraversal)
	} else if hasSuspiciousExtension(upload.Filename) {
		add(weightSuspiciousName, types.ReasonSuspiciousFilename)
	}
	if shannonEntropy(upload.Data) > entropyThreshold {
		add(weightHighEntropy, types.ReasonHighEntropy)
	}

	if score > 100 {
		score = 100
	}
	return score, reasons
}

func (s *Scanner) reject(ctx context.Context, record *types.QuarantineRecord, reason string) *types.QuarantineRecord {
	record.Reasons = append(record.Reasons, reason)
	record.State = types.QuarantineRejected
	s.emit(ctx, record)
	return record
}

func (s *Scanner) emit(ctx context.Context, record *types.QuarantineRecord) {
	ev := audit.SecurityEvent{
		EventType: "quarantine_decision",
		RecordID:  record.ID,
		Filename:  record.OriginalFilename,
		Score:     record.SecurityScore,
		State:     string(record.State),
		Reasons:   record.Reasons,
		At:        time.Now().UTC(),
	}
	if err := s.events.RecordSecurityEvent(ctx, ev); err != nil {
		log.Printf("Warning: failed to record security event for %s: %v", record.ID, err)
	}
}

func baseMIME(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.TrimSpace(m)
}

func hasExecutableSignature(data []byte) bool {
	for _, sig := range executableSignatures {
		if bytes.HasPrefix(data, sig) {
			return true
		}
	}
	return false
}

func hasScriptPayload(data []byte) bool {
	lower := bytes.ToLower(data)
	for _, pattern := range scriptPatterns {
		if bytes.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func hasTraversal(filename string) bool {
	return strings.Contains(filename, "..") ||
		strings.ContainsAny(filename, `/\`)
}

func hasSuspiciousExtension(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range dangerousExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
		// Double extension such as recipe.exe.jpg
		if strings.Contains(lower, ext+".") {
			return true
		}
	}
	return false
}

// shannonEntropy measures the first KB of the payload. Legitimate images
// compress well below the threshold in their header region; embedded
// encrypted payloads do not.
func shannonEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	if len(data) > entropyWindow {
		data = data[:entropyWindow]
	}

	var freq [256]int
	for _, b := range data {
		freq[b]++
	}

	entropy := 0.0
	n := float64(len(data))
	for _, count := range freq {
		if count == 0 {
			continue
		}
		p := float64(count) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}
