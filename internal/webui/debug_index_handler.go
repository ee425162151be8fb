package webui

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/davecgh/go-spew/spew"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

var dataTypes = []string{
	"summary", "stops", "routes", "variants", "trips", "services", "shapes", "stop_times",
	"associations", "issues", "tables", "mapping", "operator", "verification", "database",
}

var dumper = spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}

type debugData struct {
	Title     string
	Pre       string
	DataTypes []string
}

func writeDebugData(w http.ResponseWriter, title string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	dataStruct := debugData{
		Title:     title,
		Pre:       dumper.Sdump(data),
		DataTypes: dataTypes,
	}

	if err := debugTemplate.Execute(w, dataStruct); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	result := webUI.GtfsManager.LastResult()
	if result == nil {
		writeDebugData(w, "No feed generated yet", map[string]string{"status": "pending"})
		return
	}

	dataType := r.URL.Query().Get("dataType")

	var data interface{}
	var title string

	switch dataType {
	case "summary":
		data = map[string]interface{}{
			"generated_at": result.GeneratedAt,
			"counts":       result.Feed.Counts(),
			"issues":       result.Summary.Counts,
			"levels":       result.Summary.Levels,
			"archive":      result.Stats.Rows,
		}
		title = "Summary"
	case "stops":
		data = result.Feed.Stops
		title = "Merged - Stops"
	case "routes":
		data = result.Feed.Routes
		title = "Merged - Routes"
	case "variants":
		data = result.Feed.RouteVariants
		title = "Merged - Route Variants"
	case "trips":
		data = result.Feed.Trips
		title = "Merged - Trips"
	case "services":
		data = result.Feed.Services
		title = "Merged - Services"
	case "shapes":
		data = result.Feed.Shapes
		title = "Merged - Shapes"
	case "stop_times":
		data = result.Feed.StopTimes
		title = "Merged - Stop Times"
	case "associations":
		data = result.Associations
		title = "Operator to OSM Variant Associations"
	case "issues":
		data = result.Summary.Issues
		title = "Report - Issues"
	case "tables":
		data = result.Summary.Tables
		title = "Report - Comparison Tables"
	case "mapping":
		data = result.Mapping.Counts()
		title = "OSM Source - Counts"
	case "operator":
		data = result.Operator.Counts()
		title = "Operator Source - Counts"
	case "verification":
		data = result.Verification
		title = "GTFS Archive - Verification"
	case "database":
		data = webUI.databaseContents(r)
		title = "GTFS Database - Contents"
	default:
		data = map[string][]string{"Please use one of the following": dataTypes}
		title = "Choose a data type"
	}

	writeDebugData(w, title, data)
}

// databaseContents lists the imported agencies and the row count of every
// table. Query errors are shown in place of the data.
func (webUI *WebUI) databaseContents(r *http.Request) map[string]interface{} {
	db := webUI.GtfsManager.GtfsDB
	if db == nil {
		return map[string]interface{}{"status": "no GTFS database configured"}
	}
	contents := make(map[string]interface{})
	if agencies, err := db.QueryAgencies(r.Context()); err != nil {
		contents["agencies"] = err.Error()
	} else {
		contents["agencies"] = agencies
	}
	if tables, err := db.TableCounts(r.Context()); err != nil {
		contents["tables"] = err.Error()
	} else {
		contents["tables"] = tables
	}
	return contents
}
