// Package service orchestrates draft expense reports: it loads and saves
// drafts, runs AI calls outside the draft lock, and publishes events.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/expense-wizard/internal/application/dispatcher"
	"github.com/garyjia/expense-wizard/internal/application/port"
	"github.com/garyjia/expense-wizard/internal/domain/entity"
	"github.com/garyjia/expense-wizard/internal/domain/event"
	"github.com/garyjia/expense-wizard/internal/domain/wizard"
)

// ErrOperationInProgress is returned when the same AI operation is already running for a draft
var ErrOperationInProgress = errors.New("operation already in progress")

// Config holds service settings
type Config struct {
	Company   string
	AITimeout time.Duration
	DraftTTL  time.Duration
}

// Option customises a WizardService
type Option func(*WizardService)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *WizardService) { s.now = now }
}

// WizardService drives drafts through the wizard
type WizardService struct {
	cfg        Config
	store      port.DraftStore
	gateway    port.AIGateway
	exporter   port.Exporter
	dispatcher dispatcher.Dispatcher
	logger     *zap.Logger

	locks *keyedMutex
	busy  *busySet
	now   func() time.Time
}

// NewWizardService creates the service
func NewWizardService(
	cfg Config,
	store port.DraftStore,
	gateway port.AIGateway,
	exporter port.Exporter,
	events dispatcher.Dispatcher,
	logger *zap.Logger,
	opts ...Option,
) *WizardService {
	if cfg.Company == "" {
		cfg.Company = entity.DefaultCompany
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &WizardService{
		cfg:        cfg,
		store:      store,
		gateway:    gateway,
		exporter:   exporter,
		dispatcher: events,
		logger:     logger,
		locks:      newKeyedMutex(),
		busy:       newBusySet(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WizardService) today() string {
	return s.now().Format(entity.DateLayout)
}

func (s *WizardService) view(d *wizard.Draft, n *Notice) *View {
	return &View{
		Draft:      d,
		Busy:       s.busy.list(d.ID()),
		StaleLines: d.StaleLines(),
		Notice:     n,
	}
}

func (s *WizardService) publish(ctx context.Context, evt *event.Event) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.DispatchAsync(context.WithoutCancel(ctx), evt)
}

// mutate applies fn to the stored draft under its lock and saves the result.
// Nothing is saved when fn fails.
func (s *WizardService) mutate(ctx context.Context, id string, fn func(d *wizard.Draft) error) (*wizard.Draft, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(d); err != nil {
		return nil, err
	}

	d.Touch(s.now())
	if err := s.store.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return d, nil
}

// inspect runs fn against the stored draft under its lock without saving
func (s *WizardService) inspect(ctx context.Context, id string, fn func(d *wizard.Draft) error) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	d, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	return fn(d)
}

func (s *WizardService) mutateView(ctx context.Context, id string, fn func(d *wizard.Draft) error) (*View, error) {
	d, err := s.mutate(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	return s.view(d, nil), nil
}

// Create starts a new draft at the header step
func (s *WizardService) Create(ctx context.Context) (*View, error) {
	d := wizard.New(s.cfg.Company, s.now())
	if err := s.store.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}

	s.logger.Info("Draft created", zap.String("report_id", d.ID()), zap.String("report_number", d.Report.ReportNumber))
	s.publish(ctx, event.New(event.TypeReportCreated, d.ID(), map[string]interface{}{
		"reportNumber": d.Report.ReportNumber,
	}))
	return s.view(d, nil), nil
}

// Get returns the current draft
func (s *WizardService) Get(ctx context.Context, id string) (*View, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(d, nil), nil
}

// UpdateHeader edits header fields
func (s *WizardService) UpdateHeader(ctx context.Context, id string, patch wizard.HeaderPatch) (*View, error) {
	return s.mutateView(ctx, id, func(d *wizard.Draft) error { return d.UpdateHeader(patch) })
}

// SubmitHeader advances to the line step
func (s *WizardService) SubmitHeader(ctx context.Context, id string) (*View, error) {
	v, err := s.mutateView(ctx, id, func(d *wizard.Draft) error { return d.SubmitHeader(ctx) })
	if err != nil {
		return nil, err
	}
	s.publish(ctx, event.New(event.TypeReportHeaderSubmitted, id, nil))
	return v, nil
}

// BeginNewLine opens the editor on a fresh line
func (s *WizardService) BeginNewLine(ctx context.Context, id string) (*View, error) {
	return s.mutateView(ctx, id, func(d *wizard.Draft) error { return d.BeginNewLine(s.today()) })
}

// EditLine opens the editor on an existing line
func (s *WizardService) EditLine(ctx context.Context, id string, index int) (*View, error) {
	return s.mutateView(ctx, id, func(d *wizard.Draft) error { return d.EditLine(index) })
}

// UpdateLine edits the line in the editor
func (s *WizardService) UpdateLine(ctx context.Context, id string, patch wizard.LinePatch) (*View, error) {
	return s.mutateView(ctx, id, func(d *wizard.Draft) error { return d.UpdateLine(patch) })
}

// CancelEdit closes the editor without saving
func (s *WizardService) CancelEdit(ctx context.Context, id string) (*View, error) {
	return s.mutateView(ctx, id, func(d *wizard.Draft) error { return d.CancelEdit() })
}

// SaveLine commits the editor line to the report
func (s *WizardService) SaveLine(ctx context.Context, id string) (*View, error) {
	var index int
	d, err := s.mutate(ctx, id, func(d *wizard.Draft) error {
		var err error
		index, err = d.SaveLine()
		return err
	})
	if err != nil {
		return nil, err
	}

	line := d.Report.LineItems[index]
	s.publish(ctx, event.New(event.TypeLineSaved, id, map[string]interface{}{
		"index":       index,
		"lineId":      line.ID,
		"expenseItem": line.ExpenseItem,
		"amount":      line.Amount,
		"total":       d.Report.Total,
	}))
	return s.view(d, nil), nil
}

// DeleteLine removes a line
func (s *WizardService) DeleteLine(ctx context.Context, id string, index int) (*View, error) {
	d, err := s.mutate(ctx, id, func(d *wizard.Draft) error { return d.DeleteLine(index) })
	if err != nil {
		return nil, err
	}
	s.publish(ctx, event.New(event.TypeLineDeleted, id, map[string]interface{}{
		"index": index,
		"total": d.Report.Total,
	}))
	return s.view(d, nil), nil
}

// begin marks op busy for id and returns the func that clears it
func (s *WizardService) begin(id string, op Operation) (func(), error) {
	if !s.busy.acquire(id, op) {
		return nil, fmt.Errorf("%w: %s", ErrOperationInProgress, op)
	}
	return func() { s.busy.release(id, op) }, nil
}

func (s *WizardService) aiContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.AITimeout)
}

// ScanReceipt extracts fields from a receipt and merges them into the
// editor line. When the editor is idle a new line is opened once fields
// arrive. Extraction failures are reported as a notice and leave the
// draft untouched.
func (s *WizardService) ScanReceipt(ctx context.Context, id string, doc port.Document) (*View, error) {
	done, err := s.begin(id, OpScanReceipt)
	if err != nil {
		return nil, err
	}
	defer done()

	var scan wizard.ReceiptScan
	if err := s.inspect(ctx, id, func(d *wizard.Draft) error {
		var err error
		scan, err = d.PrepareReceiptScan(s.today())
		return err
	}); err != nil {
		return nil, err
	}

	callCtx, cancel := s.aiContext(ctx)
	extracted, callErr := s.gateway.ParseReceipt(callCtx, doc)
	cancel()

	if callErr != nil {
		s.logger.Error("Receipt parsing failed", zap.String("report_id", id), zap.String("file", doc.Name), zap.Error(callErr))
		return s.getView(ctx, id, notice(NoticeError, MsgReceiptFailed))
	}

	d, err := s.mutate(ctx, id, func(d *wizard.Draft) error { return d.ApplyExtracted(scan, extracted) })
	if errors.Is(err, wizard.ErrStaleEditor) || errors.Is(err, wizard.ErrNotEditing) || errors.Is(err, wizard.ErrWrongStep) {
		s.logger.Info("Discarding stale receipt scan", zap.String("report_id", id))
		return s.getView(ctx, id, notice(NoticeWarning, MsgReceiptDiscarded))
	}
	if err != nil {
		return nil, err
	}
	return s.view(d, notice(NoticeSuccess, MsgReceiptFilled)), nil
}

// UploadPolicy replaces the active policy with rules extracted from doc.
// On failure the previous policy stays active.
func (s *WizardService) UploadPolicy(ctx context.Context, id string, doc port.Document) (*View, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}

	done, err := s.begin(id, OpUploadPolicy)
	if err != nil {
		return nil, err
	}
	defer done()

	callCtx, cancel := s.aiContext(ctx)
	rules, callErr := s.gateway.ExtractPolicyRules(callCtx, doc)
	cancel()

	if callErr != nil {
		s.logger.Error("Policy extraction failed", zap.String("report_id", id), zap.String("file", doc.Name), zap.Error(callErr))
		return s.getView(ctx, id, notice(NoticeError, MsgPolicyFailed))
	}

	d, err := s.mutate(ctx, id, func(d *wizard.Draft) error { return d.ReplacePolicy(doc.Name, rules) })
	if err != nil {
		return nil, err
	}

	s.logger.Info("Policy replaced", zap.String("report_id", id), zap.String("policy", d.Policy.Name), zap.Int("version", d.Policy.Version))
	s.publish(ctx, event.New(event.TypePolicyReplaced, id, map[string]interface{}{
		"name":    d.Policy.Name,
		"source":  string(d.Policy.Source),
		"version": d.Policy.Version,
	}))
	return s.view(d, notice(NoticeSuccess, MsgPolicyUpdated)), nil
}

// ResetPolicy reverts to the standard policy
func (s *WizardService) ResetPolicy(ctx context.Context, id string) (*View, error) {
	d, err := s.mutate(ctx, id, func(d *wizard.Draft) error { return d.ResetPolicy() })
	if err != nil {
		return nil, err
	}
	s.publish(ctx, event.New(event.TypePolicyReplaced, id, map[string]interface{}{
		"name":    d.Policy.Name,
		"source":  string(d.Policy.Source),
		"version": d.Policy.Version,
	}))
	return s.view(d, notice(NoticeInfo, MsgPolicyReset)), nil
}

// CheckCompliance runs an advisory check on the editor line. The outcome
// never blocks saving.
func (s *WizardService) CheckCompliance(ctx context.Context, id string) (*View, error) {
	done, err := s.begin(id, OpCheckCompliance)
	if err != nil {
		return nil, err
	}
	defer done()

	var req *wizard.ComplianceRequest
	if _, err := s.mutate(ctx, id, func(d *wizard.Draft) error {
		var err error
		req, err = d.PrepareCompliance()
		return err
	}); err != nil {
		return nil, err
	}

	callCtx, cancel := s.aiContext(ctx)
	verdict, callErr := s.gateway.CheckPolicyCompliance(callCtx, &req.Line, req.CustomRules)
	cancel()

	result := s.complianceResult(id, verdict, callErr)

	d, err := s.mutate(ctx, id, func(d *wizard.Draft) error { return d.ApplyCompliance(req, result) })
	if errors.Is(err, wizard.ErrStaleEditor) || errors.Is(err, wizard.ErrNotEditing) {
		s.logger.Info("Discarding stale compliance result", zap.String("report_id", id))
		return s.getView(ctx, id, nil)
	}
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event.New(event.TypeComplianceChecked, id, map[string]interface{}{
		"status":        string(result.Status),
		"policyVersion": result.PolicyVersion,
	}))
	return s.view(d, complianceNotice(result)), nil
}

func (s *WizardService) complianceResult(id string, verdict *port.ComplianceVerdict, err error) wizard.ComplianceResult {
	switch {
	case err != nil:
		s.logger.Error("Compliance check failed", zap.String("report_id", id), zap.Error(err))
		return wizard.ComplianceResult{Status: wizard.ComplianceUnavailable, Message: MsgComplianceFailed}
	case verdict == nil:
		return wizard.ComplianceResult{Status: wizard.ComplianceUnavailable, Message: MsgComplianceFailed}
	case verdict.Skipped:
		return wizard.ComplianceResult{Status: wizard.ComplianceSkipped, Message: MsgComplianceSkipped}
	case verdict.Compliant:
		return wizard.ComplianceResult{Status: wizard.ComplianceCompliant, Message: MsgCompliant}
	default:
		return wizard.ComplianceResult{Status: wizard.ComplianceWarning, Message: verdict.Warning}
	}
}

func complianceNotice(r wizard.ComplianceResult) *Notice {
	switch r.Status {
	case wizard.ComplianceCompliant:
		return notice(NoticeSuccess, r.Message)
	case wizard.ComplianceWarning:
		return notice(NoticeWarning, r.Message)
	default:
		return notice(NoticeInfo, r.Message)
	}
}

func (s *WizardService) getView(ctx context.Context, id string, n *Notice) (*View, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(d, n), nil
}

// Finalize submits the report and discards the draft
func (s *WizardService) Finalize(ctx context.Context, id string) (*wizard.Acknowledgment, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ack, err := d.Finalize(ctx, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, port.ErrDraftNotFound) {
		return nil, fmt.Errorf("discard draft: %w", err)
	}
	s.busy.forget(id)

	s.logger.Info("Report submitted",
		zap.String("report_id", id),
		zap.String("report_number", ack.ReportNumber),
		zap.Float64("total", ack.Total),
		zap.Int("line_count", ack.LineCount))
	s.publish(ctx, event.New(event.TypeReportFinalized, id, map[string]interface{}{
		"reportNumber": ack.ReportNumber,
		"total":        ack.Total,
		"lineCount":    ack.LineCount,
		"message":      ack.Message,
		"submittedAt":  ack.SubmittedAt.Format(time.RFC3339),
	}))
	return ack, nil
}

// Abandon discards a draft without submitting it
func (s *WizardService) Abandon(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.busy.forget(id)
	s.publish(ctx, event.New(event.TypeReportAbandoned, id, map[string]interface{}{"reason": "cancelled"}))
	return nil
}

// ExpireIdle removes drafts untouched for longer than the configured TTL
// and returns how many were removed. It waits for in-progress mutations so
// a draft is never saved back after it expired.
func (s *WizardService) ExpireIdle(ctx context.Context) (int, error) {
	if s.cfg.DraftTTL <= 0 {
		return 0, nil
	}

	unlock := s.locks.LockAll()
	ids, err := s.store.DeleteIdleSince(ctx, s.now().Add(-s.cfg.DraftTTL))
	unlock()
	if err != nil {
		return 0, fmt.Errorf("expire drafts: %w", err)
	}
	for _, id := range ids {
		s.busy.forget(id)
		s.publish(ctx, event.New(event.TypeReportAbandoned, id, map[string]interface{}{"reason": "expired"}))
	}
	if len(ids) > 0 {
		s.logger.Info("Expired idle drafts", zap.Int("count", len(ids)))
	}
	return len(ids), nil
}

// Export renders the draft with the configured exporter
func (s *WizardService) Export(ctx context.Context, id string) ([]byte, string, error) {
	if s.exporter == nil {
		return nil, "", errors.New("export not configured")
	}
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	data, err := s.exporter.Export(d)
	if err != nil {
		return nil, "", fmt.Errorf("export draft: %w", err)
	}
	return data, s.exporter.ContentType(), nil
}
