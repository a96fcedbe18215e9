// Package cleanup provides ascii reporter
package cleanup

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/urlmap"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/caching/interfaces"
)

const (
	cyan     = "\033[38;2;86;182;194m"  // One Dark Cyan: #56B6C2
	dimCyan  = "\033[38;2;47;91;102m"   // Dim Cyan: #2F5B66
	grey     = "\033[38;2;110;118;129m" // Brighter Grey: #6E7681
	dimGrey  = "\033[38;2;75;82;99m"    // Darker Grey: #4B5263
	success  = "\033[38;2;62;130;144m"  // Dim Cyan: #3E8290
	warning  = "\033[38;2;229;192;123m" // One Dark Yellow: #E5C07B
	errorRed = "\033[38;2;224;108;117m" // One Dark Red: #E06C75
	white    = "\033[38;2;171;178;191m" // One Dark Foreground: #ABB2BF
	purple   = "\033[38;2;198;120;221m" // One Dark Purple: #C678DD
	reset    = "\033[0m"
	bold     = "\033[1m"
)

// Reporter prints worker activity to the console.
type Reporter struct {
	out io.Writer
}

func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

func (r *Reporter) LogStage(message string, args ...any) {
	fmt.Fprintf(r.out, "%s%s✦ %s%s%s\n", success, bold, grey, fmt.Sprintf(message, args...), reset)
}

func (r *Reporter) LogSuccess(message string, args ...any) {
	fmt.Fprintf(r.out, "%s%s✦ %s%s%s\n", success, bold, white, fmt.Sprintf(message, args...), reset)
}

func (r *Reporter) LogError(message string, err error) {
	fmt.Fprintf(r.out, "%s%s✖ ERROR: %s%s: %v%s\n", bold, errorRed, grey, message, err, reset)
}

func (r *Reporter) LogWarning(message string, args ...any) {
	fmt.Fprintf(r.out, "%s%s⚠ WARNING: %s%s%s\n", bold, warning, grey, fmt.Sprintf(message, args...), reset)
}

func (r *Reporter) LogInfo(message string, args ...any) {
	fmt.Fprintf(r.out, "%s▶ %s%s%s\n", dimGrey, grey, fmt.Sprintf(message, args...), reset)
}

// GenerateReport renders one status block for the element cache and URL mapping.
func (r *Reporter) GenerateReport(cache interfaces.CacheStats, urls urlmap.Stats) string {
	var report strings.Builder
	timestamp := time.Now().UTC().Format("2006-01-02 15:04:05 MST")

	report.WriteString(fmt.Sprintf("%s%s▓ %s | cache report%s\n", bold, dimCyan, timestamp, reset))
	report.WriteString(fmt.Sprintf("%s✦ elements:%s %s%d cached%s %shit ratio %.2f%s\n",
		cyan, reset, white, cache.Entries, reset, grey, cache.HitRatio(), reset))
	report.WriteString(fmt.Sprintf("%s✦ urls:%s %s%d pointers%s %s%d forward%s %s(%s)%s\n",
		purple, reset, white, urls.Pointers, reset, grey, urls.ForwardEntries, reset, dimGrey, urls.Provenance, reset))
	return report.String()
}
