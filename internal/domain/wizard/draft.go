// Package wizard holds the in-progress expense report and its line editor.
// Every operation is a pure state transition; callers own I/O and locking.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/expense-wizard/internal/domain/entity"
	"github.com/garyjia/expense-wizard/internal/domain/workflow"
)

// SubmittedMessage is the acknowledgment shown after finalizing
const SubmittedMessage = "Report Submitted Successfully!"

// EditorMode is the line editor sub-state
type EditorMode string

const (
	EditorIdle    EditorMode = "idle"
	EditorEditing EditorMode = "editing"
)

// NewLineIndex marks an editor session creating a line rather than editing one
const NewLineIndex = -1

// ComplianceStatus classifies an advisory compliance result
type ComplianceStatus string

const (
	ComplianceCompliant   ComplianceStatus = "compliant"
	ComplianceWarning     ComplianceStatus = "warning"
	ComplianceSkipped     ComplianceStatus = "skipped"
	ComplianceUnavailable ComplianceStatus = "unavailable"
)

// ComplianceResult is the outcome of the last check on the editor line
type ComplianceResult struct {
	Status        ComplianceStatus `json:"status"`
	Message       string           `json:"message"`
	PolicyVersion int              `json:"policyVersion"`
}

// Editor is the single line currently being edited. Seq identifies the
// session and Rev counts field changes within it.
type Editor struct {
	Mode       EditorMode             `json:"mode"`
	Index      int                    `json:"index"`
	Seq        int                    `json:"seq"`
	Rev        int                    `json:"rev"`
	Line       entity.ExpenseLineItem `json:"line"`
	Compliance *ComplianceResult      `json:"compliance,omitempty"`
}

// Editing reports whether the editor is open
func (e *Editor) Editing() bool {
	return e.Mode == EditorEditing
}

// IsNew reports whether the open editor will insert a new line
func (e *Editor) IsNew() bool {
	return e.Editing() && e.Index == NewLineIndex
}

// Draft is the wizard state for one report
type Draft struct {
	Step      workflow.State        `json:"step"`
	Report    *entity.ExpenseReport `json:"report"`
	Editor    Editor                `json:"editor"`
	Policy    entity.Policy         `json:"policy"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// Acknowledgment is returned once a report has been submitted
type Acknowledgment struct {
	ReportID     string              `json:"reportId"`
	ReportNumber string              `json:"reportNumber"`
	Status       entity.ReportStatus `json:"status"`
	Total        float64             `json:"total"`
	LineCount    int                 `json:"lineCount"`
	Message      string              `json:"message"`
	SubmittedAt  time.Time           `json:"submittedAt"`
}

// New starts a draft at the header step
func New(company string, now time.Time) *Draft {
	return &Draft{
		Step:      workflow.StateHeader,
		Report:    entity.NewReport(company, now.Format(entity.DateLayout)),
		Editor:    Editor{Mode: EditorIdle, Index: NewLineIndex},
		Policy:    entity.DefaultPolicy(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ID returns the report id the draft is addressed by
func (d *Draft) ID() string {
	return d.Report.ID
}

// Touch records a modification time
func (d *Draft) Touch(now time.Time) {
	d.UpdatedAt = now
}

// Clone returns a deep copy; stores hand out clones so callers never alias stored lines
func (d *Draft) Clone() *Draft {
	c := *d
	c.Report = d.Report.Clone()
	if d.Editor.Compliance != nil {
		res := *d.Editor.Compliance
		c.Editor.Compliance = &res
	}
	return &c
}

func (d *Draft) machine() (workflow.StateMachine, error) {
	return workflow.NewWizardMachine(d.Step, workflow.WizardGuards{
		HeaderComplete: func(context.Context) bool { return d.Report.HeaderComplete() },
		HasLineItems:   func(context.Context) bool { return len(d.Report.LineItems) > 0 },
	})
}

func (d *Draft) requireStep(step workflow.State) error {
	if d.Step != step {
		return fmt.Errorf("%w: in %s, need %s", ErrWrongStep, d.Step, step)
	}
	return nil
}

func (d *Draft) requireEditing() error {
	if err := d.requireStep(workflow.StateLines); err != nil {
		return err
	}
	if !d.Editor.Editing() {
		return ErrNotEditing
	}
	return nil
}

// UpdateHeader applies header changes while on the header step
func (d *Draft) UpdateHeader(p HeaderPatch) error {
	if err := d.requireStep(workflow.StateHeader); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	p.apply(d.Report)
	return nil
}

// SubmitHeader moves to the line step. It is blocked, leaving the step
// unchanged, until businessPurpose, reimbursementType and company are set.
func (d *Draft) SubmitHeader(ctx context.Context) error {
	m, err := d.machine()
	if err != nil {
		return err
	}
	if err := m.Fire(ctx, workflow.TriggerSubmitHeader); err != nil {
		if errors.Is(err, workflow.ErrGuardFailed) {
			return &HeaderIncompleteError{Missing: d.Report.MissingHeaderFields(), cause: err}
		}
		return fmt.Errorf("%w: %v", ErrWrongStep, err)
	}
	d.Step = m.State()
	return nil
}

func (d *Draft) openEditor(index int, line entity.ExpenseLineItem) {
	d.Editor = Editor{
		Mode:  EditorEditing,
		Index: index,
		Seq:   d.Editor.Seq + 1,
		Line:  line,
	}
}

// BeginNewLine opens the editor on a fresh line dated today
func (d *Draft) BeginNewLine(today string) error {
	if err := d.requireStep(workflow.StateLines); err != nil {
		return err
	}
	d.openEditor(NewLineIndex, entity.NewLineItem(today))
	return nil
}

// EditLine opens the editor on a copy of the line at index
func (d *Draft) EditLine(index int) error {
	if err := d.requireStep(workflow.StateLines); err != nil {
		return err
	}
	if index < 0 || index >= len(d.Report.LineItems) {
		return fmt.Errorf("%w: %d", ErrLineIndex, index)
	}
	d.openEditor(index, d.Report.LineItems[index])
	return nil
}

// UpdateLine applies field changes to the editor line. Any change clears
// the compliance result; Mileage lines always re-derive their amount.
func (d *Draft) UpdateLine(p LinePatch) error {
	if err := d.requireEditing(); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Empty() {
		return nil
	}

	p.apply(&d.Editor.Line)
	d.Editor.Line.DeriveMileage()
	d.Editor.Rev++
	d.clearEditorCompliance()
	return nil
}

// CancelEdit closes the editor without touching the report
func (d *Draft) CancelEdit() error {
	if err := d.requireEditing(); err != nil {
		return err
	}
	d.closeEditor()
	return nil
}

func (d *Draft) closeEditor() {
	d.Editor = Editor{Mode: EditorIdle, Index: NewLineIndex, Seq: d.Editor.Seq}
}

func (d *Draft) clearEditorCompliance() {
	d.Editor.Compliance = nil
	d.Editor.Line.ClearCompliance()
}

// SaveLine commits the editor line. Under the default policy a line over
// the receipt threshold without a receipt is rejected; a custom policy
// leaves that rule to the compliance check.
func (d *Draft) SaveLine() (int, error) {
	if err := d.requireEditing(); err != nil {
		return 0, err
	}

	line := d.Editor.Line
	line.DeriveMileage()
	if !d.Policy.IsCustom() && line.RequiresReceipt() {
		return 0, ErrReceiptRequired
	}

	index := d.Editor.Index
	if index == NewLineIndex || index >= len(d.Report.LineItems) {
		if line.ID == "" {
			line.ID = uuid.NewString()
		}
		d.Report.LineItems = append(d.Report.LineItems, line)
		index = len(d.Report.LineItems) - 1
	} else {
		if line.ID == "" {
			line.ID = d.Report.LineItems[index].ID
		}
		d.Report.LineItems[index] = line
	}

	d.Report.RecomputeTotal()
	d.closeEditor()
	return index, nil
}

// DeleteLine removes the line at index with no confirmation. An editor open
// on that line closes; one open on a later line follows it down.
func (d *Draft) DeleteLine(index int) error {
	if err := d.requireStep(workflow.StateLines); err != nil {
		return err
	}
	if index < 0 || index >= len(d.Report.LineItems) {
		return fmt.Errorf("%w: %d", ErrLineIndex, index)
	}

	items := d.Report.LineItems
	d.Report.LineItems = append(items[:index:index], items[index+1:]...)
	d.Report.RecomputeTotal()

	if d.Editor.Editing() && d.Editor.Index != NewLineIndex {
		switch {
		case d.Editor.Index == index:
			d.closeEditor()
		case d.Editor.Index > index:
			d.Editor.Index--
		}
	}
	return nil
}

// ReceiptScan identifies the editor session a scan result belongs to
type ReceiptScan struct {
	Seq int
	// NewLine is set when the editor was idle; the line opens only once
	// extracted fields arrive.
	NewLine bool
	Today   string
}

// PrepareReceiptScan records which editor session a scan targets. It does
// not change the draft.
func (d *Draft) PrepareReceiptScan(today string) (ReceiptScan, error) {
	if err := d.requireStep(workflow.StateLines); err != nil {
		return ReceiptScan{}, err
	}
	return ReceiptScan{Seq: d.Editor.Seq, NewLine: !d.Editor.Editing(), Today: today}, nil
}

// ApplyExtracted merges scanned receipt fields into the editor line,
// opening a new line first when the scan started from an idle editor.
func (d *Draft) ApplyExtracted(scan ReceiptScan, extracted *entity.ExtractedLine) error {
	if scan.NewLine {
		if err := d.requireStep(workflow.StateLines); err != nil {
			return err
		}
		if d.Editor.Editing() || d.Editor.Seq != scan.Seq {
			return ErrStaleEditor
		}
		d.openEditor(NewLineIndex, entity.NewLineItem(scan.Today))
	} else {
		if err := d.requireEditing(); err != nil {
			return err
		}
		if d.Editor.Seq != scan.Seq {
			return ErrStaleEditor
		}
	}

	Merge(&d.Editor.Line, extracted)
	d.Editor.Rev++
	d.clearEditorCompliance()
	return nil
}

// ComplianceRequest is a snapshot of what a compliance check needs
type ComplianceRequest struct {
	Seq           int
	Rev           int
	Line          entity.ExpenseLineItem
	CustomRules   string
	PolicyVersion int
}

// PrepareCompliance snapshots the editor line for a check
func (d *Draft) PrepareCompliance() (*ComplianceRequest, error) {
	if err := d.requireEditing(); err != nil {
		return nil, err
	}
	line := d.Editor.Line
	if line.Amount == 0 || line.ExpenseItem == "" {
		return nil, ErrLineIncomplete
	}

	req := &ComplianceRequest{Seq: d.Editor.Seq, Rev: d.Editor.Rev, Line: line, PolicyVersion: d.Policy.Version}
	if d.Policy.IsCustom() {
		req.CustomRules = d.Policy.Rules
	}
	d.Editor.Compliance = nil
	return req, nil
}

// ApplyCompliance records an advisory result. Results computed for an
// older editor session, an edited line or an older policy are discarded.
func (d *Draft) ApplyCompliance(req *ComplianceRequest, result ComplianceResult) error {
	if err := d.requireEditing(); err != nil {
		return err
	}
	if d.Editor.Seq != req.Seq || d.Editor.Rev != req.Rev || d.Policy.Version != req.PolicyVersion {
		return ErrStaleEditor
	}

	result.PolicyVersion = req.PolicyVersion
	d.Editor.Compliance = &result
	d.Editor.Line.ClearCompliance()
	if result.Status == ComplianceWarning {
		d.Editor.Line.ComplianceWarning = result.Message
		d.Editor.Line.CompliancePolicyVersion = req.PolicyVersion
	}
	return nil
}

// ReplacePolicy activates a custom rule set. The editor's result is
// cleared; warnings on saved lines are kept but become stale.
func (d *Draft) ReplacePolicy(name, rules string) error {
	if d.Step.IsTerminal() {
		return fmt.Errorf("%w: report already finalized", ErrWrongStep)
	}
	if name == "" {
		name = "Custom policy"
	}
	d.Policy = d.Policy.Replace(name, rules)
	d.clearEditorCompliance()
	return nil
}

// ResetPolicy reverts to the standard rules with the same invalidation as ReplacePolicy
func (d *Draft) ResetPolicy() error {
	if d.Step.IsTerminal() {
		return fmt.Errorf("%w: report already finalized", ErrWrongStep)
	}
	d.Policy = d.Policy.Reset()
	d.clearEditorCompliance()
	return nil
}

// StaleLines returns the indices of saved lines whose warning predates the active policy
func (d *Draft) StaleLines() []int {
	var stale []int
	for i := range d.Report.LineItems {
		if d.Report.LineItems[i].Stale(d.Policy.Version) {
			stale = append(stale, i)
		}
	}
	return stale
}

// Finalize submits the report. Only the presence of at least one line is checked.
func (d *Draft) Finalize(ctx context.Context, now time.Time) (*Acknowledgment, error) {
	m, err := d.machine()
	if err != nil {
		return nil, err
	}
	if err := m.Fire(ctx, workflow.TriggerFinalize); err != nil {
		if errors.Is(err, workflow.ErrGuardFailed) {
			return nil, ErrNoLineItems
		}
		return nil, fmt.Errorf("%w: %v", ErrWrongStep, err)
	}

	d.Step = m.State()
	d.Report.Status = entity.StatusSubmitted
	if d.Editor.Editing() {
		d.closeEditor()
	}

	return &Acknowledgment{
		ReportID:     d.Report.ID,
		ReportNumber: d.Report.ReportNumber,
		Status:       d.Report.Status,
		Total:        d.Report.Total,
		LineCount:    len(d.Report.LineItems),
		Message:      SubmittedMessage,
		SubmittedAt:  now,
	}, nil
}
