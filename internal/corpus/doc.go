// Package corpus maintains the meme-phrase corpus behind prompt planning.
//
// The corpus is a JSONL file of short keyword-bearing sentences scraped from
// allow-listed pages. Store reads, samples, and appends it; Crawler fills it
// by walking seed pages breadth-first, extracting sentences that mention a
// configured keyword, and appending them as it goes.
//
// The corpus is advisory. The prompting stage samples a handful of snippets
// as style references for the plan model; an empty or missing corpus file
// degrades the prompt, never the pipeline.
package corpus
