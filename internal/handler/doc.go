// Package handler implements the HTTP surface of topolab.
//
// # Handlers
//
// TopologyHandler serves the latest graph and visualization document,
// triggers rebuilds, lists build history and downloads builds as JSON, YAML
// or an Ansible inventory.
//
// Middleware provides panic recovery, CORS and request logging.
//
// # Response Format
//
// Success responses return JSON data. Error responses return JSON with an
// {error, details} structure. Export responses are attachments in the
// requested format.
//
// # Server-Sent Events
//
// The /events endpoint, served by the hub package, pushes topology_updated
// events after every rebuild.
package handler
