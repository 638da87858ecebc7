// Package coco turns a project's images and annotations into a COCO
// detection dataset.
package coco

import "fmt"

// Dataset is the top level COCO document.
type Dataset struct {
	Info        Info         `json:"info"`
	Licenses    []License    `json:"licenses"`
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`
	Categories  []Category   `json:"categories"`
}

type Info struct {
	Description string `json:"description"`
	Version     string `json:"version"`
	Contributor string `json:"contributor"`
	DateCreated string `json:"date_created"`
}

type License struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Image struct {
	ID           int    `json:"id"`
	FileName     string `json:"file_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	License      int    `json:"license"`
	DateCaptured string `json:"date_captured"`
}

type Annotation struct {
	ID           int         `json:"id"`
	ImageID      int         `json:"image_id"`
	CategoryID   int         `json:"category_id"`
	Segmentation [][]float64 `json:"segmentation"`
	BBox         [4]float64  `json:"bbox"`
	Area         float64     `json:"area"`
	IsCrowd      int         `json:"iscrowd"`
}

type Category struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Color         string `json:"color"`
	Supercategory string `json:"supercategory"`
}

// Report describes what the export had to approximate or leave out.
type Report struct {
	// DefaultedImages holds the stored ids of images exported with the
	// default dimensions because their own were unknown.
	DefaultedImages []uint `json:"defaulted_images"`
	// SkippedAnnotations holds annotations that could not be converted.
	SkippedAnnotations []Skipped `json:"skipped_annotations"`
}

type Skipped struct {
	AnnotationID uint   `json:"annotation_id"`
	ImageID      uint   `json:"image_id"`
	Reason       string `json:"reason"`
}

// FileName is the download name of a project's export.
func FileName(projectID uint) string {
	return fmt.Sprintf("project_%d_COCO.json", projectID)
}
