// Package config loads livehooks.yaml.
//
// The file configures the companion server and the headless client:
//
//	server:
//	  host: localhost
//	  port: 4000
//	  database: livehooks.db
//	  csrfSecret: change-me
//	  items:
//	    - {id: a, label: Alpha}
//	client:
//	  path: /live
//	  longPollFallback: 2500ms
//	  execPolicy: isolate
//	flash:
//	  delay: 5s
//	  resumeDelay: 3s
//	sortable:
//	  animation: 150ms
//	  dragClass: drag-item
//	log:
//	  level: info
//	  format: text
//
// Every field is optional; missing values take the defaults from New.
package config
