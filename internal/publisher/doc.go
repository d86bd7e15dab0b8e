// Package publisher hands finished videos to an external uploader command.
//
// Publishing itself (browser automation, platform credentials) lives outside
// this process. The stage composes the upload form content: the branded
// title, a description tracing the track back to its originating request and
// prompt, and the fixed topic tags. It then invokes the configured command
// with the artifact paths and metadata as flags. The command's last non-empty
// output line is recorded as the publish reference.
//
// The configured command is split on whitespace; shell quoting is not
// interpreted. When no command is configured the workflow completes items
// after the render stage and this package is never invoked.
package publisher
