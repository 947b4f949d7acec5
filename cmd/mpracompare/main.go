// mpracompare runs the comparative arm of an MPRA analysis: it fits the
// nested copy-number/transcription-rate models under both a full and a
// reduced RNA design and writes per-enhancer likelihood-ratio tests, with
// log fold-changes when the comparison is a two-condition one.
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
	var dnaDesign, rnaDesign, reducedDesign string
	var workers int
	var out string

	flag.StringVar(&dnaFile, "dna", "", "Count table of DNA (plasmid) reads: enhancer IDs in the first column, one column per observation. May be gzip/zip/xz/bzip2 compressed.")
	flag.StringVar(&rnaFile, "rna", "", "Count table of RNA (transcript) reads, same layout as -dna.")
	flag.StringVar(&dnaAnnotFile, "dnaannot", "", "Annotation table for the DNA columns: a header of factor names, then one row per observation.")
	flag.StringVar(&rnaAnnotFile, "rnaannot", "", "Annotation table for the RNA columns, same layout as -dnaannot.")
	flag.StringVar(&controlsFile, "controls", "", "File listing negative-control enhancer IDs, one per line. Optional; carried into the experiment for bookkeeping.")
	flag.StringVar(&libFactors, "libfactors", "", "Comma-separated annotation factors whose value combinations define sequencing libraries for depth estimation.")
	flag.StringVar(&depthMethod, "depth", "upper-quartile", "Depth estimation method: upper-quartile, total-sum, or size-factor.")
	flag.StringVar(&depthTarget, "target", "both", "Which assay to estimate depth factors for: dna, rna, or both.")
	flag.StringVar(&dnaDesign, "dnadesign", "", "DNA model design, e.g. \"~ barcode + batch + condition\".")
	flag.StringVar(&rnaDesign, "rnadesign", "", "Full RNA model design, e.g. \"~ condition\".")
	flag.StringVar(&reducedDesign, "reduceddesign", "~ 1", "Reduced (null) RNA design, strictly nested in -rnadesign.")
	flag.IntVar(&workers, "workers", 0, "Concurrent enhancer fits; 0 uses one worker per CPU.")
	flag.StringVar(&out, "out", "", "Output prefix; writes <out>.lrt.tsv.")
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

	if err := run(dnaFile, rnaFile, dnaAnnotFile, rnaAnnotFile, controlsFile, libFactors, depthMethod, depthTarget, dnaDesign, rnaDesign, reducedDesign, out, workers); err != nil {
		log.Fatalln(err)
	}
}

func run(dnaFile, rnaFile, dnaAnnotFile, rnaAnnotFile, controlsFile, libFactors, depthMethod, depthTarget, dnaDesign, rnaDesign, reducedDesign, out string, workers int) error {
	exp, err := loadExperiment(dnaFile, rnaFile, dnaAnnotFile, rnaAnnotFile, controlsFile)
	if err != nil {
		return err
	}
	log.Println("Assembled experiment with", exp.NEnhancers(), "enhancers")

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
	reducedF, err := formula.Parse(reducedDesign)
	if err != nil {
		return err
	}

	if err := exp.AnalyzeComparative(dnaF, rnaF, reducedF, mpranalyze.AnalysisOptions{Workers: workers}); err != nil {
		return err
	}
	log.Println("Fitted full and reduced models for", exp.NEnhancers(), "enhancers")

	table, err := exp.TestLRT()
	if err != nil {
		return err
	}
	if table.FoldChangeTerm != "" {
		log.Println("Reporting log fold-changes for", table.FoldChangeTerm)
	}

	if err := writeLRT(out+".lrt.tsv", table); err != nil {
		return err
	}
	log.Println("Wrote", out+".lrt.tsv")

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
