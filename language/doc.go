// Package language moves questions and answers in and out of the pivot
// language used for retrieval.
//
// Translator.Normalize detects the language of a question and, when the
// detector is confident it is not the pivot, translates it. Uncertain or
// failed detection and failed translation leave the text as it was and
// mark the result degraded. Translator.FromPivot translates answers back.
package language
