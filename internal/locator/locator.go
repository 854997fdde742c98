// Package locator resolves fuzzy identifying tokens to component
// worksheets.
package locator

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"uco-udo-recon/internal/models"
	"uco-udo-recon/internal/worker"
	reconerrors "uco-udo-recon/pkg/errors"
	"uco-udo-recon/pkg/logger"
)

// Locator finds component sheets by substring-matching alias tokens
// against sheet titles.
type Locator struct {
	log logger.Logger
}

// New creates a Locator writing diagnostics to log.
func New(log logger.Logger) *Locator {
	return &Locator{log: log}
}

// FindComponentSheet returns the name of the first sheet whose title
// contains one of the candidate tokens, case-insensitively. Tokens
// are tried in a fixed priority order: the raw tab name, the
// component's aliases (or the raw key when unmapped), the raw partner
// number, then the partner's compound aliases. Reserved sheets are
// never candidates.
//
// Sheets are the outer loop and tokens the inner one, so enumeration
// order of the workbook outranks token priority and the first hit in
// workbook order wins. That ordering matches how reviewers' workbooks
// have always been resolved; callers rely on it being stable.
func (l *Locator) FindComponentSheet(f *excelize.File, tabName, componentKey, partnerNumber string, cancel worker.Canceller) (string, error) {
	tokens := buildTokens(tabName, componentKey, partnerNumber)
	if len(tokens) == 0 {
		return "", reconerrors.StructureError(reconerrors.CodeComponentNotFound, "", componentKey).
			WithContext("reason", "no search tokens")
	}

	l.log.WithFields(logger.Fields{
		"tab_name":       tabName,
		"component":      componentKey,
		"partner_number": partnerNumber,
		"tokens":         tokens,
	}).Debug("searching for component sheet")

	sheets := f.GetSheetList()
	for _, sheet := range sheets {
		if cancel.Cancelled() {
			return "", reconerrors.CancelledError("component sheet search")
		}
		if models.ReservedSheets[sheet] {
			continue
		}
		title := strings.ToLower(sheet)
		for _, token := range tokens {
			if strings.Contains(title, strings.ToLower(token)) {
				l.log.WithFields(logger.Fields{
					"sheet": sheet,
					"token": token,
				}).Info("component sheet matched")
				return sheet, nil
			}
		}
	}

	l.log.WithFields(logger.Fields{
		"tokens": tokens,
		"sheets": sheets,
	}).Warn("no component sheet matched")

	return "", reconerrors.StructureError(reconerrors.CodeComponentNotFound, "", componentKey).
		WithContext("tokens", tokens).
		WithContext("sheets", sheets)
}

// buildTokens assembles the candidate tokens in priority order,
// skipping blanks and duplicates.
func buildTokens(tabName, componentKey, partnerNumber string) []string {
	var tokens []string
	seen := make(map[string]bool)

	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			return
		}
		seen[strings.ToLower(t)] = true
		tokens = append(tokens, t)
	}

	add(tabName)

	if componentKey != "" {
		if aliases, ok := models.ComponentAliases[componentKey]; ok {
			for _, a := range aliases {
				add(a)
			}
		} else {
			add(componentKey)
		}
	}

	add(partnerNumber)
	if partnerNumber != "" {
		for _, a := range models.TradingPartnerAliases[partnerNumber] {
			add(a)
		}
	}

	return tokens
}
