// Package report renders labelled runs as images and interactive charts.
//
// WriteCrownPlot and WriteHeightHistogram produce static images with
// gonum/plot (the format follows the file extension). WriteCrownChart
// produces a self-contained HTML scatter with go-echarts.
package report
