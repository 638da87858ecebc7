package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tagframe/coco"
	"tagframe/metrics"
	"tagframe/middlewares"
	"tagframe/store"
)

// ExportCOCO Download a project as a COCO dataset. Images exported with
// default dimensions are listed in X-Export-Defaulted-Images.
func ExportCOCO(factory store.ShareDaoFactory, exporter *coco.Exporter, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := requireProject(factory, c, canRead)
		if !ok {
			return
		}

		start := time.Now()
		dataset, report, err := exporter.Export(c.Request.Context(), projectID)
		if m != nil {
			m.RecordExport(time.Since(start), len(report.SkippedAnnotations), len(report.DefaultedImages), err)
		}
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", coco.FileName(projectID)))
		if len(report.DefaultedImages) > 0 {
			c.Header(middlewares.ExportDefaultedHeader, joinIDs(report.DefaultedImages))
		}
		c.Header(middlewares.ExportSkippedHeader, strconv.Itoa(len(report.SkippedAnnotations)))
		c.JSON(http.StatusOK, dataset)
	}
}

func joinIDs(ids []uint) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}
