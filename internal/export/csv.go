package export

import (
	"strings"
	"time"

	"github.com/tazhate/familycal/internal/domain"
)

// CSVDateLayout renders dates as "October 09, 2026".
const CSVDateLayout = "January 02, 2006"

// CSV renders one line per event:
//
//	name,startTime,endTime,description,category,date
//
// with "N/A" for a missing description. Fields are joined verbatim, there is
// no header row and lines are separated by "\n".
func CSV(events []domain.Event) []byte {
	lines := make([]string, 0, len(events))
	for _, e := range events {
		description := e.Description
		if description == "" {
			description = "N/A"
		}
		lines = append(lines, strings.Join([]string{
			e.Name,
			e.StartTime,
			e.EndTime,
			description,
			string(e.Category),
			e.Date.Format(CSVDateLayout),
		}, ","))
	}
	return []byte(strings.Join(lines, "\n"))
}

// CSVFilename suggests a download name such as "events-October-2026.csv".
func CSVFilename(month time.Time) string {
	return "events-" + month.Format("January-2006") + ".csv"
}
