package transform

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/prepkit-cli/internal/analysis"
	"github.com/KaramelBytes/prepkit-cli/internal/dataset"
)

// Action names a single transformation.
type Action string

const (
	ActionImpute       Action = analysis.ActionImpute
	ActionNormalize    Action = analysis.ActionNormalize
	ActionStandardize  Action = analysis.ActionStandardize
	ActionVariance     Action = "variance"
	ActionOneHot       Action = "onehot"
	ActionLabel        Action = "label"
	ActionAutoEncode   Action = analysis.ActionAutoEncode
	ActionDropOutliers Action = analysis.ActionDropOutliers
	ActionClipOutliers Action = "clip-outliers"
	ActionDropColumns  Action = "drop-columns"
	ActionExclude      Action = analysis.ActionExclude
	ActionNone         Action = analysis.ActionNone
)

// Actions lists the canonical action names.
var Actions = []Action{
	ActionImpute, ActionNormalize, ActionStandardize, ActionVariance,
	ActionOneHot, ActionLabel, ActionAutoEncode, ActionDropOutliers,
	ActionClipOutliers, ActionDropColumns, ActionExclude, ActionNone,
}

var actionAliases = map[string]Action{
	"missing":          ActionImpute,
	"missing-values":   ActionImpute,
	"fill":             ActionImpute,
	"minmax":           ActionNormalize,
	"normalization":    ActionNormalize,
	"standardization":  ActionStandardize,
	"zscore":           ActionStandardize,
	"variance-filter":  ActionVariance,
	"one-hot":          ActionOneHot,
	"onehot-encoding":  ActionOneHot,
	"label-encoding":   ActionLabel,
	"encode":           ActionAutoEncode,
	"outliers":         ActionDropOutliers,
	"winsorize":        ActionClipOutliers,
	"clip":             ActionClipOutliers,
	"drop":             ActionDropColumns,
	"drop-identifiers": ActionDropColumns,
}

// UnsupportedActionError reports an unknown action name.
type UnsupportedActionError struct {
	Action string
}

func (e *UnsupportedActionError) Error() string {
	return fmt.Sprintf("unsupported action %q", e.Action)
}

// ParseAction resolves a canonical name or alias, case-insensitively.
func ParseAction(s string) (Action, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "_", "-")
	for _, a := range Actions {
		if string(a) == key {
			return a, nil
		}
	}
	if a, ok := actionAliases[key]; ok {
		return a, nil
	}
	return "", &UnsupportedActionError{Action: s}
}

// Apply runs one action restricted to scope (all eligible columns when empty).
// exclude and none are accepted and never change the dataset.
func (t *Transformer) Apply(ds *dataset.Dataset, action Action, scope []string) (*dataset.Dataset, bool, error) {
	switch action {
	case ActionImpute:
		return t.handleMissing(ds)
	case ActionNormalize:
		out, ch := t.Normalize(ds, scope...)
		return out, ch, nil
	case ActionStandardize:
		out, ch := t.Standardize(ds, scope...)
		return out, ch, nil
	case ActionVariance:
		out, ch := t.FilterByVariance(ds, t.opt.VarianceThreshold, scope...)
		return out, ch, nil
	case ActionOneHot:
		out, ch := t.Encode(ds, EncodeOneHot, scope...)
		return out, ch, nil
	case ActionLabel:
		out, ch := t.Encode(ds, EncodeLabel, scope...)
		return out, ch, nil
	case ActionAutoEncode:
		out, ch := t.Encode(ds, EncodeAuto, scope...)
		return out, ch, nil
	case ActionDropOutliers:
		out, ch := t.DropOutliers(ds, scope...)
		return out, ch, nil
	case ActionClipOutliers:
		out, ch := t.ClipOutliers(ds, scope...)
		return out, ch, nil
	case ActionDropColumns:
		out, ch := t.DropColumns(ds, scope...)
		return out, ch, nil
	case ActionExclude, ActionNone:
		return ds, false, nil
	default:
		return ds, false, &UnsupportedActionError{Action: string(action)}
	}
}

// NoOpReason explains why an action left the dataset unchanged.
func NoOpReason(a Action) string {
	switch a {
	case ActionImpute:
		return "no missing values"
	case ActionNormalize:
		return "already normalized or no numeric columns"
	case ActionStandardize:
		return "already standardized or no numeric columns"
	case ActionVariance:
		return "no numeric column below the variance threshold"
	case ActionOneHot, ActionLabel, ActionAutoEncode:
		return "no categorical columns to encode"
	case ActionDropOutliers, ActionClipOutliers:
		return "no values outside the Tukey fences"
	case ActionDropColumns:
		return "columns not present"
	default:
		return "nothing to do"
	}
}

// Status is the outcome of one batch step.
type Status string

const (
	StatusApplied Status = "applied"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// StepResult reports what happened to one suggestion.
type StepResult struct {
	Type   analysis.SuggestionType `json:"type" yaml:"type"`
	Action string                  `json:"action" yaml:"action"`
	Status Status                  `json:"status" yaml:"status"`
	Detail string                  `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// ApplySuggestions applies suggestions in order, each restricted to its
// columns. Informational steps and steps whose guard does not hold are
// skipped; a failing step is logged and reported, and the batch continues.
// It always returns a best-effort dataset.
func (t *Transformer) ApplySuggestions(ds *dataset.Dataset, suggestions []analysis.Suggestion) (*dataset.Dataset, []StepResult) {
	cur, _ := ds.NormalizeMissing(t.opt.MissingMarkers)
	results := make([]StepResult, 0, len(suggestions))
	for _, s := range suggestions {
		res := StepResult{Type: s.Type, Action: s.Action}
		if s.Informational() {
			res.Status = StatusSkipped
			res.Detail = "informational"
			if s.Type == analysis.TypeFiltering {
				res.Detail = "kept, excluded from transformations: " + describe(s.Columns)
			}
			results = append(results, res)
			continue
		}

		action, err := ParseAction(s.Action)
		if err != nil {
			res.Status, res.Detail = StatusFailed, err.Error()
			t.log.Warn("suggestion failed", zap.String("type", string(s.Type)), zap.Error(err))
			results = append(results, res)
			continue
		}
		var scope []string
		for _, c := range s.Columns {
			if cur.Index(c) >= 0 {
				scope = append(scope, c)
			}
		}
		if len(s.Columns) > 0 && len(scope) == 0 && action != ActionImpute {
			res.Status, res.Detail = StatusSkipped, "target columns no longer present"
			results = append(results, res)
			continue
		}

		out, changed, err := t.safeApply(cur, action, scope)
		switch {
		case err != nil:
			res.Status, res.Detail = StatusFailed, err.Error()
			t.log.Warn("suggestion failed", zap.String("type", string(s.Type)), zap.Error(err))
		case !changed:
			res.Status, res.Detail = StatusSkipped, NoOpReason(action)
		default:
			res.Status, res.Detail = StatusApplied, describe(scope)
			cur = out
			t.log.Debug("suggestion applied", zap.String("type", string(s.Type)), zap.String("action", string(action)))
		}
		results = append(results, res)
	}
	return cur, results
}

func (t *Transformer) safeApply(ds *dataset.Dataset, action Action, scope []string) (out *dataset.Dataset, changed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, changed, err = ds, false, fmt.Errorf("%s panicked: %v", action, r)
		}
	}()
	return t.Apply(ds, action, scope)
}
