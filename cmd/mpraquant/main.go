// mpraquant runs the quantification arm of an MPRA analysis: it loads paired
// DNA and RNA count tables with their column annotations, estimates library
// depth factors, fits the nested copy-number/transcription-rate models, and
// writes per-enhancer alpha estimates plus empirical significance against the
// negative-control null.
package main

import (
	"flag"
	"log"
	"strings"

	"github.com/mpralab/mpranalyze"
	"github.com/mpralab/mpranalyze/formula"
)

func main() {
	log.Println(mpranalyze.BuildInfo())

	var dnaFile, rnaFile, dnaAnnotFile, rnaAnnotFile, controlsFile string
	var libFactors, depthMethod, depthTarget string
	var dnaDesign, rnaDesign, byFactor string
	var workers int
	var out string

	flag.StringVar(&dnaFile, "dna", "", "Count table of DNA (plasmid) reads: enhancer IDs in the first column, one column per observation. May be gzip/zip/xz/bzip2 compressed.")
	flag.StringVar(&rnaFile, "rna", "", "Count table of RNA (transcript) reads, same layout as -dna.")
	flag.StringVar(&dnaAnnotFile, "dnaannot", "", "Annotation table for the DNA columns: a header of factor names, then one row per observation.")
	flag.StringVar(&rnaAnnotFile, "rnaannot", "", "Annotation table for the RNA columns, same layout as -dnaannot.")
	flag.StringVar(&controlsFile, "controls", "", "File listing negative-control enhancer IDs, one per line. Required for the empirical test; omit to stop after alpha estimation.")
	flag.StringVar(&libFactors, "libfactors", "", "Comma-separated annotation factors whose value combinations define sequencing libraries for depth estimation.")
	flag.StringVar(&depthMethod, "depth", "upper-quartile", "Depth estimation method: upper-quartile, total-sum, or size-factor.")
	flag.StringVar(&depthTarget, "target", "both", "Which assay to estimate depth factors for: dna, rna, or both.")
	flag.StringVar(&dnaDesign, "dnadesign", "", "DNA model design, e.g. \"~ barcode + batch + condition\".")
	flag.StringVar(&rnaDesign, "rnadesign", "", "RNA model design, e.g. \"~ condition\".")
	flag.StringVar(&byFactor, "byfactor", "", "RNA design factor to split the alpha estimates by, one column per level; empty extracts a single intercept alpha.")
	flag.IntVar(&workers, "workers", 0, "Concurrent enhancer fits; 0 uses one worker per CPU.")
	flag.StringVar(&out, "out", "", "Output prefix; writes <out>.alpha.tsv and, with controls, <out>.empirical.<column>.tsv.")
	flag.Parse()

	if dnaFile == "" {
		flag.Usage()
		log.Fatalln("Must specify -dna")
	}
	if rnaFile == "" {
		flag.Usage()
		log.Fatalln("Must specify -rna")
	}
	if dnaAnnotFile == "" {
		flag.Usage()
		log.Fatalln("Must specify -dnaannot")
	}
	if rnaAnnotFile == "" {
		flag.Usage()
		log.Fatalln("Must specify -rnaannot")
	}
	if libFactors == "" {
		flag.Usage()
		log.Fatalln("Must specify -libfactors")
	}
	if dnaDesign == "" || rnaDesign == "" {
		flag.Usage()
		log.Fatalln("Must specify -dnadesign and -rnadesign")
	}
	if out == "" {
		flag.Usage()
		log.Fatalln("Must specify -out")
	}

	if err := run(dnaFile, rnaFile, dnaAnnotFile, rnaAnnotFile, controlsFile, libFactors, depthMethod, depthTarget, dnaDesign, rnaDesign, byFactor, out, workers); err != nil {
		log.Fatalln(err)
	}
}

func run(dnaFile, rnaFile, dnaAnnotFile, rnaAnnotFile, controlsFile, libFactors, depthMethod, depthTarget, dnaDesign, rnaDesign, byFactor, out string, workers int) error {
	exp, err := loadExperiment(dnaFile, rnaFile, dnaAnnotFile, rnaAnnotFile, controlsFile)
	if err != nil {
		return err
	}
	log.Println("Assembled experiment with", exp.NEnhancers(), "enhancers and", len(exp.Controls()), "controls")

	method, err := mpranalyze.ParseMethod(depthMethod)
	if err != nil {
		return err
	}
	target, err := mpranalyze.ParseTarget(depthTarget)
	if err != nil {
		return err
	}
	if err := exp.EstimateDepthFactors(splitFactors(libFactors), target, method); err != nil {
		return err
	}
	log.Println("Estimated", method.String(), "depth factors for target", target.String())

	dnaF, err := formula.Parse(dnaDesign)
	if err != nil {
		return err
	}
	rnaF, err := formula.Parse(rnaDesign)
	if err != nil {
		return err
	}

	if err := exp.AnalyzeQuantification(dnaF, rnaF, mpranalyze.AnalysisOptions{Workers: workers}); err != nil {
		return err
	}
	log.Println("Fitted nested models for", exp.NEnhancers(), "enhancers")

	alpha, err := exp.GetAlpha(byFactor)
	if err != nil {
		return err
	}
	if err := writeAlpha(out+".alpha.tsv", alpha); err != nil {
		return err
	}
	log.Println("Wrote", out+".alpha.tsv")

	if controlsFile == "" {
		log.Println("No -controls given; skipping the empirical test")
		return nil
	}

	for _, column := range alpha.Columns {
		sv, err := alpha.Column(column)
		if err != nil {
			return err
		}

		table, err := exp.TestEmpirical(sv)
		if err != nil {
			return err
		}
		logNullSummary(column, table)

		path := out + ".empirical." + column + ".tsv"
		if err := writeEmpirical(path, table); err != nil {
			return err
		}
		log.Println("Wrote", path)
	}

	return nil
}

func splitFactors(libFactors string) []string {
	var out []string
	for _, f := range strings.Split(libFactors, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}

	return out
}

func logNullSummary(column string, table *mpranalyze.EmpiricalTable) {
	nd := table.Null
	log.Printf("%s control null: n=%d mean=%.4g sd=%.4g median=%.4g mad=%.4g", column, nd.N, nd.Mean, nd.SD, nd.Median, nd.MAD)
	for _, b := range nd.Hist {
		log.Printf("  [%.4g, %.4g): %d", b.Lo, b.Hi, b.Count)
	}
}
