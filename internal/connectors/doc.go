// Package connectors contains the adapters that read scraped bulletin
// records into RawDocuments. The scraper itself runs elsewhere and drops
// its output where a connector can pick it up.
package connectors
