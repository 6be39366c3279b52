// Package model defines the field descriptors and entity state shared by the
// builder, the orchestrator, and renderers. A descriptor set is an ordered
// []Field keyed by Property; entity values travel as State, which keeps
// decoded binary payloads (FileValue) in their own map next to the plain
// values so transports can choose between structured and multipart bodies
// explicitly.
package model
