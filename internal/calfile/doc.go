// Package calfile reads and writes event files.
//
// YAML and JSON files hold a document with an events list:
//
//	events:
//	  - id: 1
//	    title: Standup
//	    start: 1772442000000
//	    end: 1772443800000
//	    owner: alice
//
// Times are Unix milliseconds. Documents are checked against the CUE
// schema in schema.cue before decoding, so bad input is reported with a
// file position. ICS files are read and written with golang-ical.
package calfile
