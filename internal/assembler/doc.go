// Package assembler builds finished analysis reports and their display
// sections.
//
// Assemble combines a summary, freshly computed aggregates, and any explicit
// worst-frame list into a report.AnalysisReport. FromServiceResponse runs the
// whole pipeline over a raw analysis-service document, and FromPayload does
// the same for a decoded stored payload. Payloads that blobcodec.IsReport
// accepts are decoded as reports; anything else is treated as a service
// document. Present is the display variant: ordered sections with static text,
// resolved image URLs and chart data, ready for the HTTP layer or export.
//
// All functions are pure. Division by fps or totalFrames is guarded and
// yields zero instead of NaN or Inf.
package assembler
