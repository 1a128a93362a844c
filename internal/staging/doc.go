// Package staging persists one intermediate XML record per key under the
// import directory's input folder and moves it to input/success once the
// repository accepted it. Files that fail to materialize stay where they are
// and are picked up again by the next run.
package staging
