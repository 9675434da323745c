package specialist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
)

const DefaultDownloadPrefix = "/download/"

// Letter is the rendered content of a sanction letter.
type Letter struct {
	Reference     string
	SessionID     string
	Name          string
	Amount        float64
	TenureMonths  int
	InterestRate  float64
	EMI           float64
	ProcessingFee float64
	IssuedAt      time.Time
}

// Exporter persists a rendered letter and returns a locator the customer can
// fetch it from.
type Exporter interface {
	Export(ctx context.Context, letter Letter) (string, error)
}

// LetterReference builds HC/<first 8 chars of the session id>/<YYYYMMDD>.
func LetterReference(sessionID string, issued time.Time) string {
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("HC/%s/%s", strings.ToUpper(short), issued.Format("20060102"))
}

var letterTemplate = template.Must(template.New("sanction").Funcs(template.FuncMap{
	"rupees": rupeesPaise,
	"date":   func(t time.Time) string { return t.Format("2006-01-02") },
}).Parse(`HIVE CAPITAL - PERSONAL LOAN SANCTION LETTER
============================================

Date: {{date .IssuedAt}}
Reference No: {{.Reference}}

Dear {{.Name}},

Congratulations! We are pleased to inform you that your Personal Loan
application has been approved.

LOAN DETAILS
------------
Sanctioned Amount : {{rupees .Amount}}
Loan Tenure       : {{.TenureMonths}} Months
Interest Rate     : {{printf "%.2f" .InterestRate}}% per annum
Monthly EMI       : {{rupees .EMI}}
Processing Fee    : {{rupees .ProcessingFee}} (1%)

TERMS & CONDITIONS
1. This sanction is valid for 30 days from the date of issue.
2. Disbursement is subject to completion of documentation.
3. EMI will commence from the month following disbursement.
4. Prepayment charges may apply as per policy.

Authorized Signatory
HIVE CAPITAL FINANCIAL SERVICES
(This is a digitally signed document)
`))

func RenderLetter(l Letter) ([]byte, error) {
	var buf bytes.Buffer
	if err := letterTemplate.Execute(&buf, l); err != nil {
		return nil, fmt.Errorf("render sanction letter: %w", err)
	}
	return buf.Bytes(), nil
}

// FileExporter writes letters into Dir under random names and returns
// Prefix + file name.
type FileExporter struct {
	Dir    string
	Prefix string
}

var _ Exporter = (*FileExporter)(nil)

func NewFileExporter(dir, prefix string) (*FileExporter, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("artifact directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultDownloadPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &FileExporter{Dir: dir, Prefix: prefix}, nil
}

func (e *FileExporter) Export(ctx context.Context, letter Letter) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body, err := RenderLetter(letter)
	if err != nil {
		return "", err
	}
	name := "Sanction_Letter_" + uuid.NewString() + ".txt"
	if err := os.WriteFile(filepath.Join(e.Dir, name), body, 0o644); err != nil {
		return "", fmt.Errorf("write sanction letter: %w", err)
	}
	return e.Prefix + name, nil
}
