// Package connectors holds document sources that feed the ingestion
// pipeline. The filesystem connector scans a local directory and watches
// it for new or changed documents.
package connectors
