// Package inbox reads scraped bulletin records from a directory.
//
// A record file is JSON (.json) or YAML (.yaml, .yml) and holds one record
// or a list of records. Field names of the official publications API are
// accepted next to plain English ones:
//
//	id
//	title             | titel
//	published         | beschikbaarVanaf | datum | date
//	type              | documentsoort
//	case_id           | dossierNummer | dossier
//	organisation      | organisatie (string or {naam})
//	url               | link
//	content           | inhoud | text
//	content_file      path of the body, relative to the record file
//	mime_type         | mimeType
//
// FullSync walks the directory; Watch follows it with fsnotify.
package inbox
