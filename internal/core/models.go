package core

import (
	"time"
)

// CSPReport is a single Content-Security-Policy violation as sent by a browser.
type CSPReport struct {
	ID                 string    `json:"id"`
	DocumentURI        string    `json:"documentURI"`
	Referrer           string    `json:"referrer,omitempty"`
	ViolatedDirective  string    `json:"violatedDirective"`
	EffectiveDirective string    `json:"effectiveDirective"`
	BlockedURI         string    `json:"blockedURI"`
	SourceFile         string    `json:"sourceFile,omitempty"`
	LineNumber         int       `json:"lineNumber,omitempty"`
	ColumnNumber       int       `json:"columnNumber,omitempty"`
	Disposition        string    `json:"disposition,omitempty"`
	UserAgent          string    `json:"userAgent,omitempty"`
	ReceivedAt         time.Time `json:"receivedAt"`
}

// CSPReportModel is the archived form of a CSPReport.
type CSPReportModel struct {
	ID                 string `gorm:"primaryKey;type:uuid"`
	DocumentURI        string `gorm:"index"`
	Referrer           string
	ViolatedDirective  string `gorm:"index"`
	EffectiveDirective string
	BlockedURI         string `gorm:"index"`
	SourceFile         string
	LineNumber         int
	ColumnNumber       int
	Disposition        string
	UserAgent          string
	ReceivedAt         time.Time `gorm:"index"`
	CreatedAt          time.Time
}

func (CSPReportModel) TableName() string {
	return "csp_reports"
}

func NewCSPReportModel(r *CSPReport) *CSPReportModel {
	return &CSPReportModel{
		ID:                 r.ID,
		DocumentURI:        r.DocumentURI,
		Referrer:           r.Referrer,
		ViolatedDirective:  r.ViolatedDirective,
		EffectiveDirective: r.EffectiveDirective,
		BlockedURI:         r.BlockedURI,
		SourceFile:         r.SourceFile,
		LineNumber:         r.LineNumber,
		ColumnNumber:       r.ColumnNumber,
		Disposition:        r.Disposition,
		UserAgent:          r.UserAgent,
		ReceivedAt:         r.ReceivedAt,
	}
}
